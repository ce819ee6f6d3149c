package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sago/internal/calendar"
	"sago/internal/config"
)

func configFor(provider string) config.MailerConfig {
	return config.MailerConfig{Provider: provider}
}

// recordingMailer captures sends and can fail selected recipients.
type recordingMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

func (m *recordingMailer) Send(to, subject, html, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return fmt.Errorf("provider rejected %s", to)
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html, Text: text})
	return nil
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brief_sequoia.md")
	require.NoError(t, os.WriteFile(path, []byte("# Meeting Brief: Sequoia\n\nBody."), 0o644))
	return path
}

func testMeeting() calendar.MeetingRecord {
	return calendar.MeetingRecord{
		EventID:        "evt_1",
		Title:          "Talipot x Sequoia",
		OrganizerEmail: "jessie@talipot.com",
		Participants: []calendar.Participant{
			{Email: "jessie@talipot.com", DisplayName: "Jessie Dong"},
			{Email: "sarah.chen@talipot.com", DisplayName: "Sarah Chen"},
			{Email: "alex@sequoiacap.com", DisplayName: "Alex Kim"},
		},
	}
}

func TestSendBriefTargetsClientDomain(t *testing.T) {
	mailer := &recordingMailer{}
	service := NewService(mailer, "talipot.com", nil)

	err := service.SendBrief(testMeeting(), "Sequoia", writeArtifact(t))

	require.NoError(t, err)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "jessie@talipot.com", mailer.sent[0].To)
	assert.Equal(t, "sarah.chen@talipot.com", mailer.sent[1].To)
	assert.Equal(t, "Meeting brief: Sequoia — Talipot x Sequoia", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Text, "# Meeting Brief: Sequoia")
	assert.Contains(t, mailer.sent[0].HTML, "Meeting Brief: Sequoia")
}

func TestSendBriefFallsBackToAllParticipants(t *testing.T) {
	mailer := &recordingMailer{}
	service := NewService(mailer, "talipot.com", nil)

	meeting := testMeeting()
	meeting.Participants = []calendar.Participant{
		{Email: "alex@sequoiacap.com"},
		{Email: "founder@newstartup.ai"},
	}

	err := service.SendBrief(meeting, "Sequoia", writeArtifact(t))

	require.NoError(t, err)
	assert.Len(t, mailer.sent, 2)
}

func TestSendBriefPartialFailureIsAnError(t *testing.T) {
	mailer := &recordingMailer{failFor: map[string]bool{"jessie@talipot.com": true}}
	service := NewService(mailer, "talipot.com", nil)

	err := service.SendBrief(testMeeting(), "Sequoia", writeArtifact(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "jessie@talipot.com")
	// The other recipient still got their copy.
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "sarah.chen@talipot.com", mailer.sent[0].To)
}

func TestSendBriefMissingArtifact(t *testing.T) {
	service := NewService(&recordingMailer{}, "talipot.com", nil)
	err := service.SendBrief(testMeeting(), "Sequoia", filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestSendBriefNoRecipients(t *testing.T) {
	service := NewService(&recordingMailer{}, "talipot.com", nil)
	meeting := testMeeting()
	meeting.Participants = nil

	err := service.SendBrief(meeting, "Sequoia", writeArtifact(t))
	assert.Error(t, err)
}

func TestSendConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	service := NewService(mailer, "talipot.com", nil)

	err := service.SendConfirmation(testMeeting(), "Sequoia", "/tmp/out/brief_sequoia.md")

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jessie@talipot.com", mailer.sent[0].To)
	assert.Equal(t, "Sago brief ready: Sequoia", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Text, "/tmp/out/brief_sequoia.md")
}

func TestSendConfirmationWithoutOrganizerIsSkipped(t *testing.T) {
	mailer := &recordingMailer{}
	service := NewService(mailer, "talipot.com", nil)

	meeting := testMeeting()
	meeting.OrganizerEmail = ""

	err := service.SendConfirmation(meeting, "Sequoia", "/tmp/out/brief.md")

	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestNewMailerProviders(t *testing.T) {
	noop, err := NewMailer(configFor(""), nil)
	require.NoError(t, err)
	assert.NoError(t, noop.Send("a@b.com", "s", "", "t"))

	unknown, err := NewMailer(configFor("sendgrid"), nil)
	require.NoError(t, err)
	assert.NoError(t, unknown.Send("a@b.com", "s", "", "t"))

	_, err = NewMailer(configFor("ses"), nil)
	assert.Error(t, err) // no from address
}
