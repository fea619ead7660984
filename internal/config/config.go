// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
// It is built once at startup and passed explicitly to every collaborator.
type Config struct {
	Search     SearchConfig     `mapstructure:"search"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	Provider    string `mapstructure:"provider" validate:"oneof=serper google"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
	GoogleCX    string `mapstructure:"google_cx" validate:"required_if=Provider google"`
	TimeoutSecs int    `mapstructure:"timeout_secs" validate:"min=1"`
}

// LLMConfig configures the text generation provider.
type LLMConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Temperature     float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	TopK            int32   `mapstructure:"top_k" validate:"gte=0"`
	TopP            float32 `mapstructure:"top_p" validate:"gte=0,lte=1"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens" validate:"gte=0"`
	TimeoutSecs     int     `mapstructure:"timeout_secs" validate:"min=1"`
}

// ProxyConfig configures an optional outbound HTTP(S) proxy.
type ProxyConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	Environment string `mapstructure:"environment"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// ScrapeConfig configures website scraping.
type ScrapeConfig struct {
	UserAgent          string  `mapstructure:"user_agent"`
	TimeoutSecs        int     `mapstructure:"timeout_secs" validate:"min=1"`
	BrowserFallback    bool    `mapstructure:"browser_fallback"`
	BrowserTimeoutSecs int     `mapstructure:"browser_timeout_secs" validate:"min=1"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst              int     `mapstructure:"burst" validate:"min=1"`
}

// ResilienceConfig configures retry and circuit breaking around external adapters.
type ResilienceConfig struct {
	MaxAttempts         uint    `mapstructure:"max_attempts" validate:"min=1,max=10"`
	InitialBackoffMs    int     `mapstructure:"initial_backoff_ms" validate:"min=1"`
	MaxBackoffMs        int     `mapstructure:"max_backoff_ms" validate:"min=1,gtefield=InitialBackoffMs"`
	BreakerMinRequests  uint32  `mapstructure:"breaker_min_requests" validate:"min=1"`
	BreakerFailureRatio float64 `mapstructure:"breaker_failure_ratio" validate:"gt=0,lte=1"`
	BreakerTimeoutSecs  int     `mapstructure:"breaker_timeout_secs" validate:"min=1"`
}

// Timeout returns the search request timeout.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// Timeout returns the LLM request timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSecs) * time.Second
}

// Timeout returns the per-page fetch timeout.
func (s ScrapeConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// BrowserTimeout returns the headless browser render timeout.
func (s ScrapeConfig) BrowserTimeout() time.Duration {
	return time.Duration(s.BrowserTimeoutSecs) * time.Second
}

// InitialBackoff returns the first retry delay.
func (r ResilienceConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMs) * time.Millisecond
}

// MaxBackoff returns the retry delay ceiling.
func (r ResilienceConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMs) * time.Millisecond
}

// BreakerTimeout returns how long an open breaker waits before probing again.
func (r ResilienceConfig) BreakerTimeout() time.Duration {
	return time.Duration(r.BreakerTimeoutSecs) * time.Second
}

// envBindings maps config keys to the environment variables recognised for them,
// in priority order. The prefixed PROSPECTPULSE_* form is handled by AutomaticEnv.
var envBindings = map[string][]string{
	"search.api_key":     {"PROSPECTPULSE_SEARCH_API_KEY", "SERPER_API_KEY"},
	"search.google_cx":   {"PROSPECTPULSE_SEARCH_GOOGLE_CX", "GOOGLE_SEARCH_CX"},
	"llm.api_key":        {"PROSPECTPULSE_LLM_API_KEY", "GEMINI_API_KEY"},
	"proxy.url":          {"PROSPECTPULSE_PROXY_URL", "HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"},
	"server.environment": {"PROSPECTPULSE_SERVER_ENVIRONMENT", "APP_ENV", "NODE_ENV"},
}

// Load reads configuration from an optional file and the environment.
// If path is empty, prospectpulse.yaml is looked up in . and ./config and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prospectpulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PROSPECTPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env for %s", key)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); path != "" || !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.base_url", "https://google.serper.dev")
	v.SetDefault("search.timeout_secs", 15)

	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_k", 40)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.max_output_tokens", 8192)
	v.SetDefault("llm.timeout_secs", 60)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; ProspectPulse/1.0)")
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.browser_fallback", false)
	v.SetDefault("scrape.browser_timeout_secs", 30)
	v.SetDefault("scrape.requests_per_second", 2.0)
	v.SetDefault("scrape.burst", 2)

	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 250)
	v.SetDefault("resilience.max_backoff_ms", 2000)
	v.SetDefault("resilience.breaker_min_requests", 5)
	v.SetDefault("resilience.breaker_failure_ratio", 0.6)
	v.SetDefault("resilience.breaker_timeout_secs", 30)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values.
// Missing API keys are not errors: search degrades to empty results and
// analysis reports the LLM as not configured.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return eris.Errorf("config error: %s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return eris.Wrap(err, "config error")
	}
	return nil
}

// HasSearchKey reports whether a search provider key is configured.
func (c *Config) HasSearchKey() bool {
	return strings.TrimSpace(c.Search.APIKey) != ""
}

// HasLLMKey reports whether an LLM key is configured.
func (c *Config) HasLLMKey() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
