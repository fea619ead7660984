package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("pp")

	m.CollectorCall("menu", OutcomeOK)
	m.CollectorCall("menu", OutcomeOK)
	m.CollectorCall("news", OutcomeEmpty)
	m.LLMCall("profile", OutcomeParseFailure)
	m.NormalizerResult("fenced")
	m.BreakerTransition("serper", "open")
	m.ObserveHTTP(http.MethodGet, "/api/health", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CollectorCalls.WithLabelValues("menu", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollectorCalls.WithLabelValues("news", OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMCalls.WithLabelValues("profile", OutcomeParseFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NormalizerResults.WithLabelValues("fenced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerChanges.WithLabelValues("serper", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/health", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("pp")
	m.LLMCall("insights", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pp_llm_calls_total{outcome="ok",stage="insights"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.CollectorCall("menu", OutcomeOK)
		m.LLMCall("profile", OutcomeError)
		m.NormalizerResult("direct")
		m.BreakerTransition("gemini", "closed")
		m.ObserveHTTP(http.MethodPost, "/api/prospect/analyze", http.StatusOK, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
