package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/analysis"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/collect"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/config"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/fetch"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/llm"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
)

// Dependency names used for resilience policies.
const (
	depScrape = "scrape"
	depGemini = "gemini"
)

// app holds the collaborators built from configuration.
type app struct {
	collector *collect.Collector
	analyzer  *analysis.Analyzer
	llmClient llm.Client
	policies  *resilience.Registry
}

// newApp wires collectors, search and the model client from cfg. metrics may be nil.
// A missing LLM key is not an error: the analyzer then reports itself as not configured.
func newApp(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*app, error) {
	policies := resilience.NewRegistry(resilienceConfig(cfg.Resilience, metrics))

	searchHTTP, err := fetch.ProxyClient(cfg.Proxy.URL, cfg.Search.Timeout())
	if err != nil {
		return nil, eris.Wrap(err, "search http client")
	}
	searcher, err := search.New(ctx, cfg.Search, searchHTTP, policies.Get(cfg.Search.Provider))
	if err != nil {
		return nil, eris.Wrap(err, "search provider")
	}
	if !cfg.HasSearchKey() {
		zap.L().Warn("no search API key configured, searches will return empty results")
	}

	scrapeHTTP, err := fetch.ProxyClient(cfg.Proxy.URL, cfg.Scrape.Timeout())
	if err != nil {
		return nil, eris.Wrap(err, "scrape http client")
	}
	fetchOpts := &fetch.Options{
		Timeout:         cfg.Scrape.Timeout(),
		UserAgent:       cfg.Scrape.UserAgent,
		Client:          scrapeHTTP,
		Limiter:         fetch.NewHostLimiter(cfg.Scrape.RequestsPerSecond, cfg.Scrape.Burst),
		Policy:          policies.Get(depScrape),
		BrowserFallback: cfg.Scrape.BrowserFallback,
		BrowserTimeout:  cfg.Scrape.BrowserTimeout(),
	}
	if cfg.Scrape.BrowserFallback {
		fetchOpts.Render = fetch.Renderer{UserAgent: cfg.Scrape.UserAgent, ProxyURL: cfg.Proxy.URL}.Render
	}

	var client llm.Client
	if cfg.HasLLMKey() {
		client, err = newLLMClient(ctx, cfg, policies.Get(depGemini))
		if err != nil {
			return nil, err
		}
	} else {
		zap.L().Warn("no LLM API key configured, analysis is disabled")
	}

	return &app{
		collector: collect.New(searcher, fetchOpts, collect.WithMetrics(metrics)),
		analyzer:  analysis.New(client, analysis.WithMetrics(metrics)),
		llmClient: client,
		policies:  policies,
	}, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, policy *resilience.Policy) (llm.Client, error) {
	llmCfg := llm.DefaultConfig()
	if cfg.LLM.Model != "" {
		llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.LLM.Model)
	}
	llmCfg.Generation = llm.GenerationSettings{
		Temperature:     cfg.LLM.Temperature,
		TopK:            cfg.LLM.TopK,
		TopP:            cfg.LLM.TopP,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}
	llmCfg.Timeout = cfg.LLM.Timeout()

	opts := []llm.ClientOption{llm.WithPolicy(policy)}
	if cfg.Proxy.URL != "" {
		hc, err := fetch.ProxyClient(cfg.Proxy.URL, cfg.LLM.Timeout())
		if err != nil {
			return nil, eris.Wrap(err, "llm http client")
		}
		opts = append(opts, llm.WithHTTPClient(hc))
	}

	client, err := llm.NewClient(ctx, llmCfg, cfg.LLM.APIKey, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "llm client")
	}
	return client, nil
}

func resilienceConfig(rc config.ResilienceConfig, metrics *observability.Metrics) resilience.Config {
	return resilience.Config{
		MaxAttempts:         rc.MaxAttempts,
		InitialBackoff:      rc.InitialBackoff(),
		MaxBackoff:          rc.MaxBackoff(),
		BreakerMinRequests:  rc.BreakerMinRequests,
		BreakerFailureRatio: rc.BreakerFailureRatio,
		BreakerTimeout:      rc.BreakerTimeout(),
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.BreakerTransition(name, to.String())
		},
	}
}

// Close releases the model client.
func (a *app) Close() {
	if a.llmClient == nil {
		return
	}
	if err := a.llmClient.Close(); err != nil {
		zap.L().Warn("closing llm client", zap.Error(err))
	}
}
