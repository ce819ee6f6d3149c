// Package pipeline ties the calendar scanner, target resolution, brief
// generation and delivery into the per-meeting task runner and the poll
// loop around it.
package pipeline

import (
	"strings"

	"sago/internal/calendar"
)

// titleSeparators are tried in order; the first one that splits the title
// into two or more segments wins.
var titleSeparators = []string{" x ", " <> ", " — ", " - ", " with ", " : "}

// TargetResolver derives the entity to research from a meeting's title and
// participant list. Resolution is a best-effort heuristic; the result is a
// label, not a verified identifier.
type TargetResolver struct {
	exclusionTokens []string
	clientDomain    string
	matchers        []matcher
}

type matcher func(title string, participants []calendar.Participant) (string, bool)

// NewTargetResolver builds a resolver. exclusionTokens are the operator's
// own brand names, skipped when picking a title segment; clientDomain steers
// the participant-domain fallback toward external attendees.
func NewTargetResolver(exclusionTokens []string, clientDomain string) *TargetResolver {
	r := &TargetResolver{
		clientDomain: strings.ToLower(clientDomain),
	}
	for _, t := range exclusionTokens {
		r.exclusionTokens = append(r.exclusionTokens, strings.ToLower(t))
	}
	r.matchers = []matcher{
		r.fromTitleSeparators,
		r.fromParticipantDomain,
	}
	return r
}

// Resolve never fails. The matchers run in order; when none produce a
// candidate the raw title is returned, even when empty.
func (r *TargetResolver) Resolve(title string, participants []calendar.Participant) string {
	for _, m := range r.matchers {
		if target, ok := m(title, participants); ok {
			return target
		}
	}
	return title
}

// fromTitleSeparators splits the title on each separator in order. Within
// the first separator that yields two or more segments, the winner is the
// first segment that, after stripping trailing dash fragments, is longer
// than two characters and contains none of the exclusion tokens.
func (r *TargetResolver) fromTitleSeparators(title string, _ []calendar.Participant) (string, bool) {
	for _, sep := range titleSeparators {
		parts := strings.Split(title, sep)
		if len(parts) < 2 {
			continue
		}
		for _, part := range parts {
			clean := stripDashFragment(part)
			if len(clean) <= 2 {
				continue
			}
			if r.containsExclusionToken(strings.ToLower(clean)) {
				continue
			}
			return clean, true
		}
	}
	return "", false
}

// fromParticipantDomain capitalizes the first label of a participant's email
// domain, e.g. alex@sequoiacap.com yields "Sequoiacap". External attendees
// are preferred since the client's own domain names the operator, not the
// subject.
func (r *TargetResolver) fromParticipantDomain(_ string, participants []calendar.Participant) (string, bool) {
	candidates := participants
	if r.clientDomain != "" {
		_, external := calendar.SplitByDomain(participants, r.clientDomain)
		if len(external) > 0 {
			candidates = external
		}
	}
	for _, p := range candidates {
		domain := p.Domain()
		if domain == "" {
			continue
		}
		label, _, _ := strings.Cut(domain, ".")
		if label == "" {
			continue
		}
		return capitalize(label), true
	}
	return "", false
}

func (r *TargetResolver) containsExclusionToken(lowered string) bool {
	for _, token := range r.exclusionTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// stripDashFragment drops anything after an em-dash or hyphen, mirroring
// titles like "Sequoia — Q1 Review".
func stripDashFragment(s string) string {
	s, _, _ = strings.Cut(s, "—")
	s, _, _ = strings.Cut(s, "-")
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
