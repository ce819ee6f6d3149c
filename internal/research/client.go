package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sago/internal/config"
	"sago/internal/logging"
)

const maxExtractURLs = 10

// Invoker is the uniform contract the downstream brief agent calls. All
// operations return a ToolResult and never a Go error: retry and abort
// decisions belong to the caller.
type Invoker interface {
	Search(ctx context.Context, req SearchRequest) ToolResult
	DeepResearch(ctx context.Context, req DeepResearchRequest) ToolResult
	Extract(ctx context.Context, req ExtractRequest) ToolResult
	MapSite(ctx context.Context, req MapSiteRequest) ToolResult
	CrawlSite(ctx context.Context, req CrawlRequest) ToolResult
}

// SearchRequest parameterizes a keyword web search.
type SearchRequest struct {
	Query          string
	Depth          string // "basic" or "advanced"; default advanced
	MaxResults     int    // 1-20, default 5
	IncludeDomains []string
	ExcludeDomains []string
}

// DeepResearchRequest parameterizes an autonomous multi-step research run.
type DeepResearchRequest struct {
	Query      string
	MaxDepth   int // 1-5, default 3
	MaxBreadth int // 1-5, default 3
}

// ExtractRequest parameterizes content extraction from known URLs.
type ExtractRequest struct {
	URLs       []string // at most 10; extras are truncated silently
	FocusQuery string
}

// MapSiteRequest parameterizes site structure discovery.
type MapSiteRequest struct {
	URL      string
	MaxDepth int // 1-3, default 2
}

// CrawlRequest parameterizes an instruction-driven site crawl.
type CrawlRequest struct {
	URL          string
	Instructions string
	MaxPages     int // 1-50, default 10
}

// Client talks to the Tavily REST API. It is constructed explicitly by the
// composition root and injected wherever research capability is needed.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	logger  logging.Logger
}

// NewClient builds a Client from config. A nil httpClient gets a 30s-timeout
// default, matching the provider's slowest non-research endpoints.
func NewClient(cfg config.TavilyConfig, httpClient *http.Client, logger logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &Client{
		http:    httpClient,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		logger:  logging.OrNop(logger),
	}
}

type searchResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search performs a keyword web search and renders the hits as markdown.
func (c *Client) Search(ctx context.Context, req SearchRequest) ToolResult {
	depth := req.Depth
	if depth == "" {
		depth = "advanced"
	}
	maxResults := clamp(req.MaxResults, 1, 20, 5)

	body := map[string]any{
		"query":               req.Query,
		"search_depth":        depth,
		"max_results":         maxResults,
		"include_domains":     emptyIfNil(req.IncludeDomains),
		"exclude_domains":     emptyIfNil(req.ExcludeDomains),
		"include_answer":      true,
		"include_raw_content": false,
	}

	var resp searchResponse
	if err := c.post(ctx, "search", "/search", body, &resp); err != nil {
		return resultFromError("search", err)
	}
	return success(formatSearchResults(req.Query, resp))
}

type researchResponse struct {
	Report  string `json:"report"`
	Content string `json:"content"`
	Answer  string `json:"answer"`
	Sources []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"sources"`
}

// DeepResearch runs the provider's autonomous multi-step research model and
// returns its synthesized report.
func (c *Client) DeepResearch(ctx context.Context, req DeepResearchRequest) ToolResult {
	body := map[string]any{
		"query":       req.Query,
		"model":       "pro",
		"max_depth":   clamp(req.MaxDepth, 1, 5, 3),
		"max_breadth": clamp(req.MaxBreadth, 1, 5, 3),
	}

	var resp researchResponse
	if err := c.post(ctx, "deep_research", "/research", body, &resp); err != nil {
		return resultFromError("deep_research", err)
	}
	return success(formatResearchReport(req.Query, resp))
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Extract pulls page content from up to 10 URLs. Zero URLs fail immediately
// without touching the provider.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) ToolResult {
	if len(req.URLs) == 0 {
		return failure("extract: no URLs provided for extraction")
	}
	urls := req.URLs
	if len(urls) > maxExtractURLs {
		urls = urls[:maxExtractURLs]
	}

	body := map[string]any{
		"urls":           urls,
		"extract_depth":  "advanced",
		"include_images": false,
	}

	var resp extractResponse
	if err := c.post(ctx, "extract", "/extract", body, &resp); err != nil {
		return resultFromError("extract", err)
	}
	return success(formatExtractionResults(urls, resp, req.FocusQuery))
}

type mapResponse struct {
	URLs []mapPage `json:"urls"`
}

// mapPage tolerates both string entries and {url,title} objects in the
// provider's site-map response.
type mapPage struct {
	URL   string
	Title string
}

func (p *mapPage) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.URL = s
		return nil
	}
	var obj struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.URL = obj.URL
	p.Title = obj.Title
	return nil
}

// MapSite discovers the page structure of a domain.
func (c *Client) MapSite(ctx context.Context, req MapSiteRequest) ToolResult {
	body := map[string]any{
		"url":       req.URL,
		"max_depth": clamp(req.MaxDepth, 1, 3, 2),
	}

	var resp mapResponse
	if err := c.post(ctx, "map_site", "/map", body, &resp); err != nil {
		return resultFromError("map_site", err)
	}
	return success(formatSiteMap(req.URL, resp))
}

type crawlResponse struct {
	Results []struct {
		URL        string `json:"url"`
		Content    string `json:"content"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// CrawlSite gathers data from a domain according to natural-language
// instructions.
func (c *Client) CrawlSite(ctx context.Context, req CrawlRequest) ToolResult {
	body := map[string]any{
		"url":          req.URL,
		"instructions": req.Instructions,
		"max_pages":    clamp(req.MaxPages, 1, 50, 10),
	}

	var resp crawlResponse
	if err := c.post(ctx, "crawl_site", "/crawl", body, &resp); err != nil {
		return resultFromError("crawl_site", err)
	}
	return success(formatCrawlResults(req.URL, req.Instructions, resp))
}

// post issues the single provider call for an operation and decodes the
// response into out. Failures come back as *Error with a classified kind.
func (c *Client) post(ctx context.Context, op, path string, body map[string]any, out any) error {
	if c.apiKey == "" {
		return &Error{Kind: KindAuthFailed, Op: op, Message: "no API key configured"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindUnexpected, Op: op, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindUnexpected, Op: op, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("%s: calling %s", op, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindUnexpected, Op: op, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindUnexpected, Op: op, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		c.logger.Warn("%s: provider returned status %d (%s)", op, resp.StatusCode, kind)
		return &Error{
			Kind:    kind,
			Op:      op,
			Status:  resp.StatusCode,
			Message: providerMessage(raw, resp.StatusCode),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindUnexpected, Op: op, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// providerMessage pulls a human-readable detail out of an error body,
// falling back to the status code when the body is opaque.
func providerMessage(raw []byte, status int) string {
	var body struct {
		Detail struct {
			Error string `json:"error"`
		} `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Detail.Error != "":
			return body.Detail.Error
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		}
	}
	return fmt.Sprintf("provider returned status %d", status)
}

func clamp(v, min, max, fallback int) int {
	if v == 0 {
		return fallback
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Invoker = (*Client)(nil)
