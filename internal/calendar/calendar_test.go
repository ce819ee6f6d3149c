package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	events []Event
	err    error
	calls  int
}

func (s *stubSource) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func markerEvent(id, title string, attendees ...EventPerson) Event {
	all := append([]EventPerson{{Email: "hello@heysago.com", ResponseStatus: "accepted"}}, attendees...)
	return Event{
		ID:        id,
		Summary:   title,
		Start:     EventTime{DateTime: "2026-09-01T10:00:00-08:00"},
		Organizer: EventPerson{Email: "organizer@talipot.com"},
		Attendees: all,
		HTMLLink:  "https://calendar.google.com/calendar/event?eid=" + id,
	}
}

func TestScanFiltersToMarkerMeetings(t *testing.T) {
	source := &stubSource{events: []Event{
		markerEvent("evt_1", "Talipot x Sequoia",
			EventPerson{Email: "alex@sequoiacap.com", DisplayName: "Alex Kim", ResponseStatus: "accepted"}),
		{
			ID:        "evt_2",
			Summary:   "Internal standup",
			Attendees: []EventPerson{{Email: "someone@talipot.com"}},
		},
	}}

	scanner := NewScanner(source, "hello@heysago.com", nil)
	meetings, err := scanner.Scan(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "evt_1", meetings[0].EventID)
	assert.Equal(t, "Talipot x Sequoia", meetings[0].Title)
}

func TestScanExcludesMarkerFromParticipants(t *testing.T) {
	source := &stubSource{events: []Event{
		markerEvent("evt_1", "Intro",
			EventPerson{Email: "alex@sequoiacap.com", DisplayName: "Alex Kim", ResponseStatus: "accepted"},
			EventPerson{Email: "jessie@talipot.com", DisplayName: "Jessie Dong", ResponseStatus: "tentative"}),
	}}

	scanner := NewScanner(source, "HELLO@HEYSAGO.COM", nil)
	meetings, err := scanner.Scan(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, meetings, 1)
	require.Len(t, meetings[0].Participants, 2)
	for _, p := range meetings[0].Participants {
		assert.NotEqual(t, "hello@heysago.com", p.Email)
	}
	assert.Equal(t, ResponseTentative, meetings[0].Participants[1].ResponseStatus)
}

func TestScanMarkerMatchIsCaseInsensitive(t *testing.T) {
	source := &stubSource{events: []Event{
		{
			ID:      "evt_1",
			Summary: "Mixed case marker",
			Attendees: []EventPerson{
				{Email: "Hello@HeySago.com", ResponseStatus: "accepted"},
				{Email: "alex@sequoiacap.com"},
			},
		},
	}}

	scanner := NewScanner(source, "hello@heysago.com", nil)
	meetings, err := scanner.Scan(context.Background(), 7)

	require.NoError(t, err)
	assert.Len(t, meetings, 1)
}

func TestScanEmptyWindowIsNotAnError(t *testing.T) {
	scanner := NewScanner(&stubSource{}, "hello@heysago.com", nil)
	meetings, err := scanner.Scan(context.Background(), 7)

	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestScanSurfacesSourceErrors(t *testing.T) {
	source := &stubSource{err: &AuthError{Status: 401}}
	scanner := NewScanner(source, "hello@heysago.com", nil)

	_, err := scanner.Scan(context.Background(), 7)

	require.Error(t, err)
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestScanRejectsNonPositiveWindow(t *testing.T) {
	scanner := NewScanner(&stubSource{}, "hello@heysago.com", nil)
	_, err := scanner.Scan(context.Background(), 0)
	assert.Error(t, err)
}

func TestScanIsIdempotentForStableSource(t *testing.T) {
	source := &stubSource{events: []Event{
		markerEvent("evt_1", "Talipot x Sequoia",
			EventPerson{Email: "alex@sequoiacap.com", DisplayName: "Alex Kim", ResponseStatus: "accepted"}),
	}}
	scanner := NewScanner(source, "hello@heysago.com", nil)

	first, err := scanner.Scan(context.Background(), 7)
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUntitledEventsGetPlaceholder(t *testing.T) {
	source := &stubSource{events: []Event{markerEvent("evt_1", "")}}
	scanner := NewScanner(source, "hello@heysago.com", nil)

	meetings, err := scanner.Scan(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "(no title)", meetings[0].Title)
}

func TestSplitByDomain(t *testing.T) {
	participants := []Participant{
		{Email: "jessie@talipot.com"},
		{Email: "Sarah.Chen@TALIPOT.com"},
		{Email: "alex@sequoiacap.com"},
	}

	client, external := SplitByDomain(participants, "talipot.com")

	assert.Len(t, client, 2)
	require.Len(t, external, 1)
	assert.Equal(t, "alex@sequoiacap.com", external[0].Email)
}

func TestDemoSourcePassesScannerFilter(t *testing.T) {
	source := NewDemoSource("hello@heysago.com")
	scanner := NewScanner(source, "hello@heysago.com", nil)

	meetings, err := scanner.Scan(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "demo_001", meetings[0].EventID)
	assert.Equal(t, "Intro: Sago <> Series A Candidate", meetings[1].Title)
}

func TestParticipantHelpers(t *testing.T) {
	p := Participant{Email: "alex@SequoiaCap.com", DisplayName: "Alex Kim"}
	assert.Equal(t, "Alex Kim", p.Label())
	assert.Equal(t, "sequoiacap.com", p.Domain())

	anon := Participant{Email: "founder@newstartup.ai"}
	assert.Equal(t, "founder@newstartup.ai", anon.Label())

	broken := Participant{Email: "not-an-email"}
	assert.Equal(t, "", broken.Domain())
}
