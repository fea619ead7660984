package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "serper", cfg.Search.Provider)
	assert.Equal(t, "https://google.serper.dev", cfg.Search.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout())
	assert.Equal(t, float32(0.7), cfg.LLM.Temperature)
	assert.Equal(t, int32(40), cfg.LLM.TopK)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, uint(3), cfg.Resilience.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Resilience.InitialBackoff())
	assert.False(t, cfg.HasSearchKey())
	assert.False(t, cfg.HasLLMKey())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_LegacyEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPER_API_KEY", "serper-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("HTTP_PROXY", "http://proxy.local:3128")
	t.Setenv("NODE_ENV", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "serper-key", cfg.Search.APIKey)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "http://proxy.local:3128", cfg.Proxy.URL)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.True(t, cfg.HasSearchKey())
	assert.True(t, cfg.HasLLMKey())
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPER_API_KEY", "legacy")
	t.Setenv("PROSPECTPULSE_SEARCH_API_KEY", "prefixed")
	t.Setenv("PROSPECTPULSE_SERVER_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Search.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	content := `
search:
  provider: google
  google_cx: abc123
server:
  port: 3000
log:
  level: debug
  format: console
scrape:
  browser_fallback: true
`
	path := filepath.Join(t.TempDir(), "prospectpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Search.Provider)
	assert.Equal(t, "abc123", cfg.Search.GoogleCX)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Scrape.BrowserFallback)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Search.Provider = "bing" },
			wantErr: "Provider",
		},
		{
			name:    "google without cx",
			mutate:  func(c *Config) { c.Search.Provider = "google" },
			wantErr: "GoogleCX",
		},
		{
			name:    "bad proxy url",
			mutate:  func(c *Config) { c.Proxy.URL = "not a url" },
			wantErr: "URL",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "Level",
		},
		{
			name:    "backoff ceiling below initial",
			mutate:  func(c *Config) { c.Resilience.MaxBackoffMs = 10 },
			wantErr: "MaxBackoffMs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
