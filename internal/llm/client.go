package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
)

var (
	// ErrMissingAPIKey is returned when a client is constructed without credentials.
	ErrMissingAPIKey = eris.New("LLM API key is required")
	// ErrQuotaExceeded is returned when the provider rejects a call for quota or rate reasons.
	ErrQuotaExceeded = eris.New("LLM quota exceeded")
)

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent sends a single-turn text prompt and returns the concatenated text reply
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GetModel returns the provider model name used for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// ClientOption customizes client construction.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	policy     *resilience.Policy
}

// WithHTTPClient routes provider traffic through hc, e.g. one configured with an outbound proxy.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithPolicy applies retries and a circuit breaker to every generation call.
func WithPolicy(p *resilience.Policy) ClientOption {
	return func(o *clientOptions) {
		o.policy = p
	}
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string, opts ...ClientOption) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, config, apiKey, opts...)
	default:
		return nil, eris.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
	policy *resilience.Policy
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string, opts ...ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config == nil {
		config = DefaultGeminiConfig()
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if o.httpClient != nil {
		// A custom HTTP client bypasses option.WithAPIKey, so the key rides on the transport.
		hc := *o.httpClient
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc.Transport = &transport.APIKey{Key: apiKey, Transport: base}
		clientOpts = []option.ClientOption{option.WithHTTPClient(&hc)}
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create Gemini client")
	}

	return &GeminiClient{
		client: client,
		config: config,
		policy: o.policy,
	}, nil
}

// GenerateContent generates text content using the specified model tier
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", eris.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	g := c.config.Generation
	model.SetTemperature(g.Temperature)
	model.SetTopK(g.TopK)
	model.SetTopP(g.TopP)
	if g.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(g.MaxOutputTokens)
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	text, err := resilience.Execute(ctx, c.policy, func(ctx context.Context) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", classifyError(err)
		}
		return extractTextFromResponse(resp)
	})
	if err != nil {
		if IsQuotaError(err) {
			return "", eris.Wrapf(ErrQuotaExceeded, "model %s: %v", modelName, err)
		}
		return "", eris.Wrapf(err, "failed to generate content with %s", modelName)
	}
	return text, nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsQuotaError reports whether err signals exhausted quota or provider-side rate limiting.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if eris.Is(err, ErrQuotaExceeded) {
		return true
	}
	if statusOf(err) == http.StatusTooManyRequests || resilience.StatusCode(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted")
}

// classifyError marks provider failures that are worth retrying.
func classifyError(err error) error {
	if code := statusOf(err); resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(err, code)
	}
	return err
}

func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", eris.New("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", eris.New("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", eris.New("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
