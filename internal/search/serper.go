package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
)

// DefaultSerperURL is the Serper API root.
const DefaultSerperURL = "https://google.serper.dev"

const maxErrorBody = 512

// SerperClient queries the Serper Google Search API.
type SerperClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	policy  *resilience.Policy
}

// SerperOption customizes a SerperClient.
type SerperOption func(*SerperClient)

// WithBaseURL overrides the API root. Empty keeps the default.
func WithBaseURL(u string) SerperOption {
	return func(c *SerperClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client. Nil keeps the default.
func WithHTTPClient(hc *http.Client) SerperOption {
	return func(c *SerperClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPolicy applies retries and a circuit breaker to every request.
func WithPolicy(p *resilience.Policy) SerperOption {
	return func(c *SerperClient) {
		c.policy = p
	}
}

// NewSerperClient creates a Serper client for apiKey.
func NewSerperClient(apiKey string, opts ...SerperOption) *SerperClient {
	c := &SerperClient{
		apiKey:  apiKey,
		baseURL: DefaultSerperURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	TBS string `json:"tbs,omitempty"`
}

type serperSearchResponse struct {
	Organic []Result `json:"organic"`
}

type serperNewsResponse struct {
	News []NewsResult `json:"news"`
}

// Search runs a web search and returns up to num organic results.
func (c *SerperClient) Search(ctx context.Context, query string, num int) ([]Result, error) {
	var out serperSearchResponse
	if err := c.post(ctx, "/search", serperRequest{Q: query, Num: num}, &out); err != nil {
		return nil, err
	}
	return out.Organic, nil
}

// News runs a news search. tbs restricts recency, e.g. PastYear.
func (c *SerperClient) News(ctx context.Context, query string, num int, tbs string) ([]NewsResult, error) {
	var out serperNewsResponse
	if err := c.post(ctx, "/news", serperRequest{Q: query, Num: num, TBS: tbs}, &out); err != nil {
		return nil, err
	}
	return out.News, nil
}

func (c *SerperClient) post(ctx context.Context, path string, body serperRequest, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "failed to encode search request")
	}

	return c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "failed to create search request")
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrapf(err, "search request %s failed", path)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			statusErr := &StatusError{
				Provider:   ProviderSerper,
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return eris.Wrap(err, "failed to decode search response")
		}
		return nil
	})
}
