package brief

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sago/internal/research"
)

// scriptedInvoker returns canned results per operation and counts calls.
type scriptedInvoker struct {
	searchResults []research.ToolResult
	searchCalls   atomic.Int32
	deepResult    research.ToolResult
}

func (s *scriptedInvoker) Search(context.Context, research.SearchRequest) research.ToolResult {
	n := int(s.searchCalls.Add(1)) - 1
	if n < len(s.searchResults) {
		return s.searchResults[n]
	}
	return s.searchResults[len(s.searchResults)-1]
}

func (s *scriptedInvoker) DeepResearch(context.Context, research.DeepResearchRequest) research.ToolResult {
	return s.deepResult
}

func (s *scriptedInvoker) Extract(context.Context, research.ExtractRequest) research.ToolResult {
	return research.ToolResult{Success: true, Data: ""}
}

func (s *scriptedInvoker) MapSite(context.Context, research.MapSiteRequest) research.ToolResult {
	return research.ToolResult{Success: true, Data: ""}
}

func (s *scriptedInvoker) CrawlSite(context.Context, research.CrawlRequest) research.ToolResult {
	return research.ToolResult{Success: true, Data: ""}
}

func ok(data string) research.ToolResult {
	return research.ToolResult{Success: true, Data: data}
}

func fail(msg string) research.ToolResult {
	return research.ToolResult{Success: false, Error: msg}
}

func newTestComposer(invoker research.Invoker) *Composer {
	c := NewComposer(invoker, nil)
	c.backoff = time.Millisecond
	return c
}

func TestGenerateWritesArtifact(t *testing.T) {
	invoker := &scriptedInvoker{
		searchResults: []research.ToolResult{ok("## Web Search Results\n\nsearch payload")},
		deepResult:    ok("## Deep Research Report\n\nSequoia Capital is a venture firm."),
	}
	composer := newTestComposer(invoker)

	dir := t.TempDir()
	artifact, err := composer.Generate(context.Background(), Request{
		Target:       "Sequoia",
		MeetingTitle: "Talipot x Sequoia",
		MeetingStart: "2026-09-01T10:00:00-08:00",
		Attendees:    []string{"Alex Kim", "Jessie Dong"},
		SessionID:    "run-1",
		OutputDir:    dir,
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "brief_sequoia.md"), artifact.Path)
	assert.Contains(t, artifact.Summary, "Sequoia Capital")

	content, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Meeting Brief: Sequoia")
	assert.Contains(t, string(content), "Deep Research Report")
	assert.Contains(t, string(content), "Supporting Search Results")
	assert.Contains(t, string(content), "Alex Kim, Jessie Dong")
}

func TestGenerateRetriesRateLimitedSearchOnce(t *testing.T) {
	invoker := &scriptedInvoker{
		searchResults: []research.ToolResult{
			fail("search: rate limit exceeded, wait before retrying"),
			ok("recovered results"),
		},
		deepResult: ok("report body"),
	}
	composer := newTestComposer(invoker)

	artifact, err := composer.Generate(context.Background(), Request{
		Target:    "Sequoia",
		OutputDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), invoker.searchCalls.Load())

	content, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "recovered results")
}

func TestGenerateDoesNotRetryOtherFailures(t *testing.T) {
	invoker := &scriptedInvoker{
		searchResults: []research.ToolResult{fail("search: bad request: query missing")},
		deepResult:    ok("report body"),
	}
	composer := newTestComposer(invoker)

	_, err := composer.Generate(context.Background(), Request{
		Target:    "Sequoia",
		OutputDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), invoker.searchCalls.Load())
}

func TestGenerateDegradesWhenDeepResearchFails(t *testing.T) {
	invoker := &scriptedInvoker{
		searchResults: []research.ToolResult{ok("search payload")},
		deepResult:    fail("deep_research: rate limit exceeded, wait before retrying"),
	}
	composer := newTestComposer(invoker)

	artifact, err := composer.Generate(context.Background(), Request{
		Target:    "Sequoia",
		OutputDir: t.TempDir(),
	})

	require.NoError(t, err)
	content, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Deep research unavailable")
	assert.Contains(t, string(content), "search payload")
}

func TestGenerateFailsWhenAllResearchFails(t *testing.T) {
	invoker := &scriptedInvoker{
		searchResults: []research.ToolResult{fail("search: authentication failed, check the Tavily API key")},
		deepResult:    fail("deep_research: authentication failed, check the Tavily API key"),
	}
	composer := newTestComposer(invoker)

	_, err := composer.Generate(context.Background(), Request{
		Target:    "Sequoia",
		OutputDir: t.TempDir(),
	})

	assert.Error(t, err)
}

func TestGenerateValidatesRequest(t *testing.T) {
	composer := newTestComposer(&scriptedInvoker{
		searchResults: []research.ToolResult{ok("x")},
		deepResult:    ok("x"),
	})

	_, err := composer.Generate(context.Background(), Request{OutputDir: t.TempDir()})
	assert.Error(t, err)

	_, err = composer.Generate(context.Background(), Request{Target: "Sequoia"})
	assert.Error(t, err)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "brief_sequoia.md", artifactName("Sequoia"))
	assert.Equal(t, "brief_series_a_candidate.md", artifactName("Series A Candidate"))
	assert.Equal(t, "brief.md", artifactName("!!!"))
}

func TestLatestArtifact(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "brief_old.md")
	require.NoError(t, os.WriteFile(older, []byte("old"), 0o644))
	newer := filepath.Join(dir, "brief_new.md")
	require.NoError(t, os.WriteFile(newer, []byte("new"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	latest, err := LatestArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, latest)

	_, err = LatestArtifact(t.TempDir())
	assert.Error(t, err)
}
