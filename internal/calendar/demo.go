package calendar

import (
	"context"
	"time"
)

// DemoSource serves a fixed pair of sample meetings so the pipeline can run
// end to end without calendar credentials.
type DemoSource struct {
	MarkerEmail string
	now         func() time.Time
}

// NewDemoSource builds a demo EventSource whose fixtures carry markerEmail
// as an attendee.
func NewDemoSource(markerEmail string) *DemoSource {
	return &DemoSource{MarkerEmail: markerEmail, now: time.Now}
}

// ListEvents ignores the window and returns the demo fixtures.
func (d *DemoSource) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	now := d.now().UTC()
	stamp := func(offset time.Duration) EventTime {
		return EventTime{DateTime: now.Add(offset).Format("2006-01-02T15:04:05-07:00")}
	}

	return []Event{
		{
			ID:      "demo_001",
			Summary: "Talipot x Sago — Q1 Portfolio Review",
			Start:   stamp(26 * time.Hour),
			Organizer: EventPerson{
				Email: "jessie@talipot.com",
			},
			Attendees: []EventPerson{
				{Email: d.MarkerEmail, ResponseStatus: "accepted"},
				{Email: "jessie@talipot.com", DisplayName: "Jessie Dong", ResponseStatus: "accepted"},
				{Email: "sarah.chen@talipot.com", DisplayName: "Sarah Chen", ResponseStatus: "accepted"},
				{Email: "mike.r@founderco.com", DisplayName: "Mike Rodriguez", ResponseStatus: "tentative"},
			},
			HTMLLink: "https://calendar.google.com/calendar/event?eid=demo001",
		},
		{
			ID:      "demo_002",
			Summary: "Intro: Sago <> Series A Candidate",
			Start:   stamp(77 * time.Hour),
			Organizer: EventPerson{
				Email: "alex@sequoiacap.com",
			},
			Attendees: []EventPerson{
				{Email: d.MarkerEmail, ResponseStatus: "accepted"},
				{Email: "alex@sequoiacap.com", DisplayName: "Alex Kim", ResponseStatus: "accepted"},
				{Email: "jessie@talipot.com", DisplayName: "Jessie Dong", ResponseStatus: "accepted"},
				{Email: "founder@newstartup.ai", DisplayName: "Jordan Lee", ResponseStatus: "needsAction"},
			},
			HTMLLink: "https://calendar.google.com/calendar/event?eid=demo002",
		},
	}, nil
}
