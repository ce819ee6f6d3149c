// Package calendar discovers upcoming meetings that carry the Sago marker
// participant and normalizes them into MeetingRecords for the pipeline.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sago/internal/logging"
)

// ResponseStatus is an attendee's RSVP state as reported by the provider.
type ResponseStatus string

const (
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
	ResponseNeedsAction ResponseStatus = "needsAction"
	ResponseUnknown     ResponseStatus = "unknown"
)

// NormalizeResponseStatus maps a raw provider value onto the closed set,
// defaulting to unknown.
func NormalizeResponseStatus(raw string) ResponseStatus {
	switch ResponseStatus(raw) {
	case ResponseAccepted, ResponseDeclined, ResponseTentative, ResponseNeedsAction:
		return ResponseStatus(raw)
	default:
		return ResponseUnknown
	}
}

// Participant is one attendee of a meeting. Email is the identity key and is
// compared case-insensitively throughout; the stored value keeps the
// provider's original casing.
type Participant struct {
	Email          string
	DisplayName    string
	ResponseStatus ResponseStatus
}

// Label returns the display name when present, otherwise the email.
func (p Participant) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// Domain returns the lowercased part after the last "@", or "" when the
// email is malformed.
func (p Participant) Domain() string {
	idx := strings.LastIndex(p.Email, "@")
	if idx < 0 || idx == len(p.Email)-1 {
		return ""
	}
	return strings.ToLower(p.Email[idx+1:])
}

// MeetingRecord is a normalized calendar event relevant to the pipeline.
// EventID is stable across polls; the marker participant is excluded from
// Participants. Start keeps the provider's raw value, which may be a
// date-only string for all-day events.
type MeetingRecord struct {
	EventID        string
	Title          string
	Start          string
	OrganizerEmail string
	Participants   []Participant
	SourceLink     string
}

// SplitByDomain partitions participants into those on the operator's client
// domain (brief recipients) and everyone else (brief subjects). Comparison
// is case-insensitive.
func SplitByDomain(participants []Participant, clientDomain string) (client, external []Participant) {
	domain := strings.ToLower(clientDomain)
	for _, p := range participants {
		if p.Domain() == domain {
			client = append(client, p)
		} else {
			external = append(external, p)
		}
	}
	return client, external
}

// Event is a raw provider event, shaped after the Google Calendar v3
// events.list item.
type Event struct {
	ID        string        `json:"id"`
	Summary   string        `json:"summary"`
	Start     EventTime     `json:"start"`
	Organizer EventPerson   `json:"organizer"`
	Attendees []EventPerson `json:"attendees"`
	HTMLLink  string        `json:"htmlLink"`
}

// EventTime is either a dateTime with offset or a date-only value.
type EventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// Value returns whichever of dateTime/date the provider populated.
func (t EventTime) Value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// EventPerson is an organizer or attendee entry.
type EventPerson struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	ResponseStatus string `json:"responseStatus"`
}

// EventSource lists raw events in a window. Pagination is the source's
// responsibility; implementations return the complete window.
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
}

// Scanner polls an EventSource and yields the meetings flagged with the
// marker participant.
type Scanner struct {
	source      EventSource
	markerEmail string
	logger      logging.Logger
	now         func() time.Time
}

// NewScanner builds a Scanner over source. markerEmail is the fixed address
// whose presence flags an event as relevant.
func NewScanner(source EventSource, markerEmail string, logger logging.Logger) *Scanner {
	return &Scanner{
		source:      source,
		markerEmail: strings.ToLower(markerEmail),
		logger:      logging.OrNop(logger),
		now:         time.Now,
	}
}

// Scan queries the window [now, now+days] and returns the normalized marker
// meetings. An empty result is a valid steady state, not an error; a source
// failure (including auth) is surfaced to the caller, who decides whether it
// is fatal.
func (s *Scanner) Scan(ctx context.Context, days int) ([]MeetingRecord, error) {
	if days <= 0 {
		return nil, fmt.Errorf("scan window must be positive, got %d days", days)
	}

	from := s.now().UTC()
	to := from.Add(time.Duration(days) * 24 * time.Hour)

	s.logger.Info("scanning calendar for the next %d day(s), marker %s", days, s.markerEmail)

	events, err := s.source.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	var meetings []MeetingRecord
	for _, event := range events {
		if !s.hasMarker(event) {
			continue
		}
		meetings = append(meetings, s.normalize(event))
	}

	if len(meetings) == 0 {
		s.logger.Info("no upcoming meetings found with %s", s.markerEmail)
	}
	return meetings, nil
}

func (s *Scanner) hasMarker(event Event) bool {
	for _, a := range event.Attendees {
		if strings.EqualFold(a.Email, s.markerEmail) {
			return true
		}
	}
	return false
}

func (s *Scanner) normalize(event Event) MeetingRecord {
	title := event.Summary
	if title == "" {
		title = "(no title)"
	}

	var participants []Participant
	for _, a := range event.Attendees {
		if strings.EqualFold(a.Email, s.markerEmail) {
			continue
		}
		participants = append(participants, Participant{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: NormalizeResponseStatus(a.ResponseStatus),
		})
	}

	return MeetingRecord{
		EventID:        event.ID,
		Title:          title,
		Start:          event.Start.Value(),
		OrganizerEmail: event.Organizer.Email,
		Participants:   participants,
		SourceLink:     event.HTMLLink,
	}
}
