package delivery

import (
	"errors"
	"fmt"
	"html"
	"os"
	"strings"

	"sago/internal/calendar"
	"sago/internal/logging"
)

// Service emails finished briefs. Recipients are the client-domain
// participants of the meeting; when none are present every participant
// receives the brief. The organizer always gets a confirmation.
type Service struct {
	mailer       Mailer
	clientDomain string
	logger       logging.Logger
}

// NewService builds a delivery Service over mailer. clientDomain selects the
// recipient side of each meeting.
func NewService(mailer Mailer, clientDomain string, logger logging.Logger) *Service {
	return &Service{
		mailer:       mailer,
		clientDomain: clientDomain,
		logger:       logging.OrNop(logger),
	}
}

// SendBrief mails the artifact at artifactPath to the meeting's recipients,
// one email per guest. A failed send for any recipient fails the whole
// delivery so the meeting is retried on the next cycle.
func (s *Service) SendBrief(meeting calendar.MeetingRecord, target, artifactPath string) error {
	content, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("read brief artifact: %w", err)
	}

	recipients := s.recipients(meeting)
	if len(recipients) == 0 {
		return fmt.Errorf("meeting %q has no deliverable recipients", meeting.Title)
	}

	subject := fmt.Sprintf("Meeting brief: %s — %s", target, meeting.Title)
	text := string(content)
	htmlBody := renderHTML(text)

	var errs []error
	for _, r := range recipients {
		if err := s.mailer.Send(r.Email, subject, htmlBody, text); err != nil {
			s.logger.Error("brief delivery to %s failed: %v", r.Email, err)
			errs = append(errs, fmt.Errorf("deliver to %s: %w", r.Email, err))
			continue
		}
		s.logger.Info("brief delivered to %s", r.Email)
	}
	return errors.Join(errs...)
}

// SendConfirmation notifies the organizer that a brief was produced for
// their meeting.
func (s *Service) SendConfirmation(meeting calendar.MeetingRecord, target, artifactPath string) error {
	if meeting.OrganizerEmail == "" {
		s.logger.Warn("meeting %q has no organizer, skipping confirmation", meeting.Title)
		return nil
	}

	subject := fmt.Sprintf("Sago brief ready: %s", target)
	text := fmt.Sprintf(
		"A research brief for %s has been prepared for your meeting %q and sent to the attendees.\n\nArtifact: %s\n",
		target, meeting.Title, artifactPath)

	if err := s.mailer.Send(meeting.OrganizerEmail, subject, renderHTML(text), text); err != nil {
		return fmt.Errorf("confirm to organizer %s: %w", meeting.OrganizerEmail, err)
	}
	s.logger.Info("confirmation sent to organizer %s", meeting.OrganizerEmail)
	return nil
}

// recipients prefers the client-domain side of the meeting and falls back to
// everyone when the meeting has no client-domain participants.
func (s *Service) recipients(meeting calendar.MeetingRecord) []calendar.Participant {
	client, _ := calendar.SplitByDomain(meeting.Participants, s.clientDomain)
	if len(client) > 0 {
		return client
	}
	return meeting.Participants
}

// renderHTML wraps the plain-text body in a minimal preformatted HTML shell.
// Brief content is markdown; rich rendering is left to the reader's client.
func renderHTML(text string) string {
	var b strings.Builder
	b.WriteString("<html><body><pre style=\"font-family: sans-serif; white-space: pre-wrap;\">")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</pre></body></html>")
	return b.String()
}
