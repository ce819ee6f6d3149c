package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sago/internal/brief"
	"sago/internal/calendar"
	"sago/internal/logging"
)

// Deliverer is the outbound side of a processed meeting.
type Deliverer interface {
	SendBrief(meeting calendar.MeetingRecord, target, artifactPath string) error
	SendConfirmation(meeting calendar.MeetingRecord, target, artifactPath string) error
}

// TaskRunner processes one meeting end to end: resolve the research target,
// generate the brief in an isolated session, deliver it, and mark the event
// processed. Failures never escape the per-meeting boundary.
type TaskRunner struct {
	resolver  *TargetResolver
	generator brief.Generator
	deliverer Deliverer
	processed *ProcessedSet
	outputDir string
	timeout   time.Duration
	logger    logging.Logger
}

// NewTaskRunner wires a runner. timeout bounds one meeting's processing;
// zero means the default of ten minutes.
func NewTaskRunner(
	resolver *TargetResolver,
	generator brief.Generator,
	deliverer Deliverer,
	processed *ProcessedSet,
	outputDir string,
	timeout time.Duration,
	logger logging.Logger,
) *TaskRunner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &TaskRunner{
		resolver:  resolver,
		generator: generator,
		deliverer: deliverer,
		processed: processed,
		outputDir: outputDir,
		timeout:   timeout,
		logger:    logging.OrNop(logger),
	}
}

// Run processes a single meeting. On success the meeting's event ID is
// marked processed; on any failure it is left unmarked so the next scan
// cycle retries it. A meeting without participants is skipped entirely,
// returning no error and marking nothing.
func (r *TaskRunner) Run(ctx context.Context, meeting calendar.MeetingRecord) (string, string, error) {
	if len(meeting.Participants) == 0 {
		r.logger.Warn("skipping %q: no participants besides the marker", meeting.Title)
		return "", "", nil
	}

	target := r.resolver.Resolve(meeting.Title, meeting.Participants)
	sessionID := uuid.NewString()
	r.logger.Info("processing %q: target %q, session %s", meeting.Title, target, sessionID)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	artifact, err := r.generator.Generate(ctx, brief.Request{
		Target:       target,
		MeetingTitle: meeting.Title,
		MeetingStart: meeting.Start,
		Attendees:    attendeeLabels(meeting.Participants),
		SessionID:    sessionID,
		OutputDir:    filepath.Join(r.outputDir, meeting.EventID),
		Prompt:       buildPrompt(target, meeting),
	})
	if err != nil {
		return target, "", fmt.Errorf("generate brief for %q: %w", meeting.Title, err)
	}

	if err := r.deliverer.SendBrief(meeting, target, artifact.Path); err != nil {
		return target, artifact.Path, fmt.Errorf("deliver brief for %q: %w", meeting.Title, err)
	}
	if err := r.deliverer.SendConfirmation(meeting, target, artifact.Path); err != nil {
		// The guests have their brief; a lost confirmation is not worth a
		// full redelivery on the next cycle.
		r.logger.Warn("organizer confirmation for %q failed: %v", meeting.Title, err)
	}

	r.processed.MarkProcessed(meeting.EventID)
	r.logger.Info("completed %q: artifact %s", meeting.Title, artifact.Path)
	return target, artifact.Path, nil
}

// buildPrompt assembles the free-text instruction handed to the generator.
func buildPrompt(target string, meeting calendar.MeetingRecord) string {
	return fmt.Sprintf(
		"Generate a briefing for: %s\n\nContext: Upcoming meeting — '%s' on %s.\nAttendees: %s.\n",
		target, meeting.Title, meeting.Start, strings.Join(attendeeLabels(meeting.Participants), ", "))
}

func attendeeLabels(participants []calendar.Participant) []string {
	labels := make([]string, 0, len(participants))
	for _, p := range participants {
		labels = append(labels, p.Label())
	}
	return labels
}
