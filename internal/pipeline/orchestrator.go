package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sago/internal/calendar"
	"sago/internal/logging"
)

// Orchestrator drives the scan-dedup-dispatch cycle, once in single-shot
// mode or indefinitely in watch mode.
type Orchestrator struct {
	scanner   *calendar.Scanner
	runner    *TaskRunner
	processed *ProcessedSet
	logger    logging.Logger

	scanDays  int
	interval  time.Duration
	workers   int
	outputDir string
}

// OrchestratorConfig carries the loop parameters.
type OrchestratorConfig struct {
	ScanDays  int
	Interval  time.Duration
	Workers   int
	OutputDir string
}

// NewOrchestrator assembles the poll loop over a scanner and a runner
// sharing the given processed set.
func NewOrchestrator(
	scanner *calendar.Scanner,
	runner *TaskRunner,
	processed *ProcessedSet,
	cfg OrchestratorConfig,
	logger logging.Logger,
) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Orchestrator{
		scanner:   scanner,
		runner:    runner,
		processed: processed,
		logger:    logging.OrNop(logger),
		scanDays:  cfg.ScanDays,
		interval:  interval,
		workers:   workers,
		outputDir: cfg.OutputDir,
	}
}

// RunOnce executes a single scan-and-dispatch cycle. Scan-level failures are
// returned to the caller; meeting-level failures are contained per meeting.
// On a successful scan the normalized meeting list is persisted as JSON next
// to the brief artifacts.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	meetings, err := o.scanner.Scan(ctx, o.scanDays)
	if err != nil {
		return err
	}
	if len(meetings) > 0 {
		if err := o.persistScan(meetings); err != nil {
			o.logger.Warn("could not persist scan results: %v", err)
		}
	}
	o.dispatch(ctx, meetings)
	return nil
}

// Watch loops scan-dispatch-sleep until ctx is canceled. A calendar
// authentication failure terminates the loop; any other scan failure is
// logged and retried on the next cycle.
func (o *Orchestrator) Watch(ctx context.Context) error {
	o.logger.Info("watch mode: scanning every %s", o.interval)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		meetings, err := o.scanner.Scan(ctx, o.scanDays)
		switch {
		case err == nil:
			o.dispatch(ctx, meetings)
		case isFatalScanError(err):
			return err
		default:
			o.logger.Error("scan failed, retrying next cycle: %v", err)
		}

		o.logger.Info("next scan in %s", o.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// dispatch runs the task runner over the not-yet-processed subset of
// meetings. One meeting's failure never stops the others; failed meetings
// stay unmarked and retry on the next cycle.
func (o *Orchestrator) dispatch(ctx context.Context, meetings []calendar.MeetingRecord) {
	var fresh []calendar.MeetingRecord
	for _, m := range meetings {
		if o.processed.IsNew(m.EventID) {
			fresh = append(fresh, m)
		}
	}

	if len(fresh) == 0 {
		if len(meetings) > 0 {
			o.logger.Info("no new meetings (all %d already processed)", len(meetings))
		} else {
			o.logger.Info("no new meetings")
		}
		return
	}

	runID := uuid.NewString()
	o.logger.Info("found %d new meeting(s), run %s", len(fresh), runID)

	if o.workers == 1 {
		for _, meeting := range fresh {
			o.runMeeting(ctx, meeting)
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, meeting := range fresh {
		meeting := meeting
		g.Go(func() error {
			o.runMeeting(gctx, meeting)
			return nil
		})
	}
	_ = g.Wait()
}

// runMeeting is the per-meeting failure boundary.
func (o *Orchestrator) runMeeting(ctx context.Context, meeting calendar.MeetingRecord) {
	if _, _, err := o.runner.Run(ctx, meeting); err != nil {
		o.logger.Error("meeting %q failed, will retry next cycle: %v", meeting.Title, err)
	}
}

// scanRecord is the persisted shape of one scanned meeting.
type scanRecord struct {
	EventID        string            `json:"event_id"`
	Title          string            `json:"title"`
	Start          string            `json:"start"`
	OrganizerEmail string            `json:"organizer_email"`
	Participants   []scanParticipant `json:"participants"`
	SourceLink     string            `json:"source_link,omitempty"`
}

type scanParticipant struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status"`
}

// persistScan writes the scan results as JSON so downstream tooling can pick
// them up without re-querying the calendar.
func (o *Orchestrator) persistScan(meetings []calendar.MeetingRecord) error {
	records := make([]scanRecord, 0, len(meetings))
	for _, m := range meetings {
		rec := scanRecord{
			EventID:        m.EventID,
			Title:          m.Title,
			Start:          m.Start,
			OrganizerEmail: m.OrganizerEmail,
			SourceLink:     m.SourceLink,
		}
		for _, p := range m.Participants {
			rec.Participants = append(rec.Participants, scanParticipant{
				Email:          p.Email,
				DisplayName:    p.DisplayName,
				ResponseStatus: string(p.ResponseStatus),
			})
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scan results: %w", err)
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(o.outputDir, "sago_meetings.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scan results: %w", err)
	}
	o.logger.Info("saved %d meeting(s) to %s", len(records), path)
	return nil
}

// isFatalScanError reports whether the scan failure makes further cycles
// pointless. Only calendar authentication qualifies.
func isFatalScanError(err error) bool {
	var authErr *calendar.AuthError
	return errors.As(err, &authErr)
}
