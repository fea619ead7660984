// Package search provides web and news search adapters used by the collectors.
package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/config"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
)

// Provider names accepted in search.provider.
const (
	ProviderSerper = "serper"
	ProviderGoogle = "google"
)

// Recency filters understood by News. They follow Google's tbs syntax.
const (
	PastYear  = "qdr:y"
	PastMonth = "qdr:m"
	PastWeek  = "qdr:w"
)

// ErrNotConfigured is returned by every call when no search API key is set.
var ErrNotConfigured = eris.New("search provider not configured")

// Result is one organic web result.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// NewsResult is one news result.
type NewsResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Searcher runs web and news queries against a search provider.
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]Result, error)
	News(ctx context.Context, query string, num int, tbs string) ([]NewsResult, error)
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s search returned status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s search returned status %d", e.Provider, e.StatusCode)
}

// New builds the searcher selected by cfg. hc carries the proxy-aware transport and may be nil.
// An empty API key yields a searcher whose calls fail with ErrNotConfigured.
func New(ctx context.Context, cfg config.SearchConfig, hc *http.Client, policy *resilience.Policy) (Searcher, error) {
	if cfg.APIKey == "" {
		return Unconfigured{}, nil
	}
	switch cfg.Provider {
	case ProviderGoogle:
		return NewGoogleSearcher(ctx, cfg.APIKey, cfg.GoogleCX,
			WithGoogleHTTPClient(hc),
			WithGooglePolicy(policy),
		)
	case ProviderSerper, "":
		return NewSerperClient(cfg.APIKey,
			WithBaseURL(cfg.BaseURL),
			WithHTTPClient(hc),
			WithPolicy(policy),
		), nil
	default:
		return nil, eris.Errorf("unknown search provider %q", cfg.Provider)
	}
}

// Unconfigured is the searcher used when no API key is available.
type Unconfigured struct{}

// Search always fails with ErrNotConfigured.
func (Unconfigured) Search(context.Context, string, int) ([]Result, error) {
	return nil, ErrNotConfigured
}

// News always fails with ErrNotConfigured.
func (Unconfigured) News(context.Context, string, int, string) ([]NewsResult, error) {
	return nil, ErrNotConfigured
}
