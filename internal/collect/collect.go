// Package collect gathers public information about a restaurant prospect from web search,
// its website, news, social profiles and Yelp.
//
// Every collector is best effort: failures are logged, counted and degraded to an empty,
// low-confidence result. Only BasicSearch reports an error, because the search endpoint
// needs to know when no data at all could be gathered.
package collect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/fetch"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
)

// Collector names used in logs and metrics.
const (
	NameBasic         = "basic_search"
	NameComprehensive = "comprehensive"
	NameBusiness      = "business_data"
	NameMenu          = "menu"
	NameNews          = "news"
	NameIndustry      = "industry_news"
	NameSocial        = "social"
	NameYelp          = "yelp"
	NameWebsite       = "website_hours"
)

// Collector runs the individual collectors against one search provider and fetcher configuration.
type Collector struct {
	search  search.Searcher
	fetch   *fetch.Options
	metrics *observability.Metrics
	now     func() time.Time
}

// Option customizes a Collector.
type Option func(*Collector)

// WithMetrics records collector outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithClock overrides the time source used for relative news dates.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// New creates a Collector. A nil searcher behaves as an unconfigured provider and nil fetch
// options use fetch.DefaultOptions.
func New(s search.Searcher, fetchOpts *fetch.Options, opts ...Option) *Collector {
	if s == nil {
		s = search.Unconfigured{}
	}
	if fetchOpts == nil {
		fetchOpts = fetch.DefaultOptions()
	}
	c := &Collector{
		search: s,
		fetch:  fetchOpts,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pageOptions copies the fetch options with browser-like request headers added.
func (c *Collector) pageOptions() *fetch.Options {
	o := *c.fetch
	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
	for k, v := range c.fetch.Headers {
		headers[k] = v
	}
	o.Headers = headers
	return &o
}

func (c *Collector) record(name, outcome string, started time.Time, fields ...zap.Field) {
	c.metrics.CollectorCall(name, outcome)
	fields = append([]zap.Field{
		zap.String("collector", name),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(started)),
	}, fields...)
	zap.L().Debug("collector finished", fields...)
}

func (c *Collector) fail(name string, started time.Time, err error, fields ...zap.Field) {
	c.metrics.CollectorCall(name, observability.OutcomeError)
	fields = append([]zap.Field{
		zap.String("collector", name),
		zap.Duration("elapsed", time.Since(started)),
		zap.Error(err),
	}, fields...)
	zap.L().Warn("collector failed", fields...)
}

// searchResults runs a web search and treats a missing provider as no results.
func (c *Collector) searchResults(ctx context.Context, query string, num int) ([]search.Result, error) {
	results, err := c.search.Search(ctx, query, num)
	if err != nil {
		if isNotConfigured(err) {
			return nil, nil
		}
		return nil, err
	}
	return results, nil
}
