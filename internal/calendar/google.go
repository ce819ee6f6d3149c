package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"sago/internal/config"
	"sago/internal/logging"
)

// AuthError marks a calendar authentication failure. The orchestrator treats
// it as fatal: without calendar access no meetings can be discovered.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("calendar authentication failed (status %d)", e.Status)
}

// GoogleSource lists events from the Google Calendar v3 REST API. The access
// token header is materialized once, on first use, for the process lifetime.
type GoogleSource struct {
	http       *http.Client
	cfg        config.CalendarConfig
	logger     logging.Logger
	authOnce   sync.Once
	authHeader string
	authErr    error
}

// NewGoogleSource builds an EventSource over the Google Calendar API. A nil
// httpClient gets a 30s-timeout default.
func NewGoogleSource(cfg config.CalendarConfig, httpClient *http.Client, logger logging.Logger) *GoogleSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleSource{
		http:   httpClient,
		cfg:    cfg,
		logger: logging.OrNop(logger),
	}
}

// authorization resolves the bearer header exactly once per process.
func (g *GoogleSource) authorization() (string, error) {
	g.authOnce.Do(func() {
		if g.cfg.AccessToken == "" {
			g.authErr = &AuthError{Status: 0}
			return
		}
		g.authHeader = "Bearer " + g.cfg.AccessToken
	})
	return g.authHeader, g.authErr
}

type eventsPage struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
}

// ListEvents returns all events in [from, to], expanding recurring events
// into concrete instances and following pagination to exhaustion.
func (g *GoogleSource) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	auth, err := g.authorization()
	if err != nil {
		return nil, err
	}

	var events []Event
	pageToken := ""
	for {
		page, err := g.listPage(ctx, auth, from, to, pageToken)
		if err != nil {
			return nil, err
		}
		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}

func (g *GoogleSource) listPage(ctx context.Context, auth string, from, to time.Time, pageToken string) (*eventsPage, error) {
	query := url.Values{}
	query.Set("timeMin", from.Format(time.RFC3339))
	query.Set("timeMax", to.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s",
		g.cfg.BaseURL, url.PathEscape(g.cfg.CalendarID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build events request: %w", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	default:
		return nil, fmt.Errorf("calendar returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var page eventsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode calendar response: %w", err)
	}
	return &page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
