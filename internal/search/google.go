package search

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
)

// maxGoogleResults is the Custom Search API page size limit.
const maxGoogleResults = 10

// GoogleSearcher queries the Google Programmable Search (Custom Search JSON) API.
type GoogleSearcher struct {
	svc    *customsearch.Service
	cx     string
	policy *resilience.Policy
}

type googleOptions struct {
	httpClient *http.Client
	endpoint   string
	policy     *resilience.Policy
}

// GoogleOption customizes a GoogleSearcher.
type GoogleOption func(*googleOptions)

// WithGoogleHTTPClient routes API traffic through hc. Nil keeps the default transport.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(o *googleOptions) {
		o.httpClient = hc
	}
}

// WithGoogleEndpoint overrides the API root, e.g. for a local test server.
func WithGoogleEndpoint(endpoint string) GoogleOption {
	return func(o *googleOptions) {
		o.endpoint = endpoint
	}
}

// WithGooglePolicy applies retries and a circuit breaker to every request.
func WithGooglePolicy(p *resilience.Policy) GoogleOption {
	return func(o *googleOptions) {
		o.policy = p
	}
}

// NewGoogleSearcher creates a searcher for the search engine cx.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...GoogleOption) (*GoogleSearcher, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if cx == "" {
		return nil, eris.New("google search requires a search engine id (cx)")
	}

	var o googleOptions
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if o.httpClient != nil {
		hc := *o.httpClient
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc.Transport = &transport.APIKey{Key: apiKey, Transport: base}
		clientOpts = []option.ClientOption{option.WithHTTPClient(&hc)}
	}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}

	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create customsearch service")
	}
	return &GoogleSearcher{svc: svc, cx: cx, policy: o.policy}, nil
}

// Search runs a web search and returns up to num results.
func (g *GoogleSearcher) Search(ctx context.Context, query string, num int) ([]Result, error) {
	items, err := g.list(ctx, query, num, "")
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

// News approximates a news search with a date-restricted web search.
// The display link stands in for the publisher.
func (g *GoogleSearcher) News(ctx context.Context, query string, num int, tbs string) ([]NewsResult, error) {
	items, err := g.list(ctx, query, num, DateRestrict(tbs))
	if err != nil {
		return nil, err
	}
	results := make([]NewsResult, 0, len(items))
	for _, item := range items {
		results = append(results, NewsResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Source:  item.DisplayLink,
		})
	}
	return results, nil
}

func (g *GoogleSearcher) list(ctx context.Context, query string, num int, dateRestrict string) ([]*customsearch.Result, error) {
	if num <= 0 || num > maxGoogleResults {
		num = maxGoogleResults
	}
	return resilience.Execute(ctx, g.policy, func(ctx context.Context) ([]*customsearch.Result, error) {
		call := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(num)).Context(ctx)
		if dateRestrict != "" {
			call = call.DateRestrict(dateRestrict)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, classifyGoogleError(err)
		}
		return resp.Items, nil
	})
}

// DateRestrict maps a tbs recency filter onto the Custom Search dateRestrict syntax.
func DateRestrict(tbs string) string {
	switch tbs {
	case PastYear:
		return "y1"
	case PastMonth:
		return "m1"
	case PastWeek:
		return "w1"
	case "qdr:d":
		return "d1"
	default:
		return ""
	}
}

func classifyGoogleError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	statusErr := &StatusError{Provider: ProviderGoogle, StatusCode: gerr.Code, Body: gerr.Message}
	if resilience.IsTransientHTTPStatus(gerr.Code) {
		return resilience.NewTransientError(statusErr, gerr.Code)
	}
	return statusErr
}
