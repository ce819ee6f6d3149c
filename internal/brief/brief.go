// Package brief turns a resolved research target into a written meeting
// brief. The generator boundary keeps the pipeline independent of how briefs
// are produced; the default composer drives the research toolset and writes
// a markdown artifact per meeting.
package brief

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sago/internal/logging"
	"sago/internal/research"
)

// Request carries everything the generator needs for one meeting.
type Request struct {
	Target       string
	MeetingTitle string
	MeetingStart string
	Attendees    []string
	SessionID    string
	OutputDir    string
	Prompt       string
}

// Artifact is the handle to a produced brief. Path points at the markdown
// file inside the session directory.
type Artifact struct {
	Path    string
	Summary string
}

// Generator produces a brief for one meeting. Implementations own their
// failure modes; the pipeline treats any returned error as a per-meeting
// failure.
type Generator interface {
	Generate(ctx context.Context, req Request) (Artifact, error)
}

// Composer is the default Generator. It runs a web search for grounding,
// then a deep research pass, and assembles both into a markdown brief.
type Composer struct {
	invoker research.Invoker
	logger  logging.Logger
	backoff time.Duration
}

var _ Generator = (*Composer)(nil)

// NewComposer builds a Composer over the given research invoker.
func NewComposer(invoker research.Invoker, logger logging.Logger) *Composer {
	return &Composer{
		invoker: invoker,
		logger:  logging.OrNop(logger),
		backoff: 5 * time.Second,
	}
}

// Generate researches req.Target and writes the brief into req.OutputDir.
// The artifact handle is returned directly; callers never have to scan the
// directory for the newest file.
func (c *Composer) Generate(ctx context.Context, req Request) (Artifact, error) {
	if req.Target == "" {
		return Artifact{}, fmt.Errorf("brief request has no target")
	}
	if req.OutputDir == "" {
		return Artifact{}, fmt.Errorf("brief request has no output directory")
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create session directory: %w", err)
	}

	c.logger.Info("composing brief for %q (session %s)", req.Target, req.SessionID)

	searchResult := c.searchWithBackoff(ctx, research.SearchRequest{
		Query:      fmt.Sprintf("%s company overview funding news", req.Target),
		MaxResults: 5,
	})

	query := req.Prompt
	if query == "" {
		query = fmt.Sprintf("Prepare a meeting briefing on %s: who they are, recent activity, key people, and anything relevant to an upcoming conversation.", req.Target)
	}
	researchResult := c.invoker.DeepResearch(ctx, research.DeepResearchRequest{Query: query})

	if !searchResult.Success && !researchResult.Success {
		return Artifact{}, fmt.Errorf("all research failed for %q: %s", req.Target, researchResult.Error)
	}

	content := c.compose(req, searchResult, researchResult)

	path := filepath.Join(req.OutputDir, artifactName(req.Target))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write brief artifact: %w", err)
	}

	c.logger.Info("brief written to %s", path)
	return Artifact{Path: path, Summary: summarize(content)}, nil
}

// searchWithBackoff retries a rate-limited search exactly once after a short
// pause. Any other failure is returned as-is; the composer degrades rather
// than aborts when only the search leg fails.
func (c *Composer) searchWithBackoff(ctx context.Context, req research.SearchRequest) research.ToolResult {
	result := c.invoker.Search(ctx, req)
	if result.Success || !strings.Contains(result.Error, "rate limit") {
		return result
	}

	c.logger.Warn("search rate limited, retrying once after %s", c.backoff)
	select {
	case <-time.After(c.backoff):
	case <-ctx.Done():
		return result
	}
	return c.invoker.Search(ctx, req)
}

func (c *Composer) compose(req Request, search, deep research.ToolResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Meeting Brief: %s\n\n", req.Target)
	fmt.Fprintf(&b, "**Meeting:** %s\n\n", req.MeetingTitle)
	if req.MeetingStart != "" {
		fmt.Fprintf(&b, "**When:** %s\n\n", req.MeetingStart)
	}
	if len(req.Attendees) > 0 {
		fmt.Fprintf(&b, "**Attendees:** %s\n\n", strings.Join(req.Attendees, ", "))
	}
	fmt.Fprintf(&b, "_Generated %s_\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("---\n\n")

	if deep.Success {
		b.WriteString(deep.Data)
		b.WriteString("\n\n")
	} else {
		fmt.Fprintf(&b, "_Deep research unavailable: %s_\n\n", deep.Error)
	}

	if search.Success {
		b.WriteString("## Supporting Search Results\n\n")
		b.WriteString(search.Data)
		b.WriteString("\n")
	}

	return b.String()
}

// artifactName derives a filesystem-safe file name from the target.
func artifactName(target string) string {
	slug := strings.ToLower(target)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "brief"
	}
	return "brief_" + slug + ".md"
}

// summarize returns the first non-heading content line, capped at 200 runes.
func summarize(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") ||
			strings.HasPrefix(line, "_") || strings.HasPrefix(line, "---") {
			continue
		}
		runes := []rune(line)
		if len(runes) > 200 {
			return string(runes[:200]) + "..."
		}
		return line
	}
	return ""
}

// LatestArtifact returns the most recently modified markdown file under dir.
// Kept for operators inspecting an output tree by hand; the pipeline itself
// uses the handle Generate returns.
func LatestArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read artifact directory: %w", err)
	}

	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", fmt.Errorf("no markdown artifacts in %s", dir)
	}
	return newest, nil
}
