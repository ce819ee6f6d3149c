package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sago/internal/config"
)

func googleConfig(baseURL string) config.CalendarConfig {
	return config.CalendarConfig{
		CalendarID:  "primary",
		AccessToken: "test-token",
		BaseURL:     baseURL,
	}
}

func TestGoogleSourceFollowsPagination(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("pageToken"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))

		var page eventsPage
		if r.URL.Query().Get("pageToken") == "" {
			page.Items = []Event{{ID: "evt_1"}}
			page.NextPageToken = "p2"
		} else {
			page.Items = []Event{{ID: "evt_2"}}
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	source := NewGoogleSource(googleConfig(server.URL), server.Client(), nil)
	events, err := source.ListEvents(context.Background(), time.Now(), time.Now().Add(24*time.Hour))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt_1", events[0].ID)
	assert.Equal(t, "evt_2", events[1].ID)
	assert.Equal(t, []string{"", "p2"}, requests)
}

func TestGoogleSourceAuthFailureIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	source := NewGoogleSource(googleConfig(server.URL), server.Client(), nil)
	_, err := source.ListEvents(context.Background(), time.Now(), time.Now().Add(24*time.Hour))

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestGoogleSourceMissingTokenFailsBeforeAnyRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	cfg := googleConfig(server.URL)
	cfg.AccessToken = ""
	source := NewGoogleSource(cfg, server.Client(), nil)

	_, err := source.ListEvents(context.Background(), time.Now(), time.Now().Add(24*time.Hour))

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.False(t, called)
}

func TestGoogleSourceServerErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("backend exploded"))
	}))
	defer server.Close()

	source := NewGoogleSource(googleConfig(server.URL), server.Client(), nil)
	_, err := source.ListEvents(context.Background(), time.Now(), time.Now().Add(24*time.Hour))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "backend exploded")
}
