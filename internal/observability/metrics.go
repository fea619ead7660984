package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by collector and LLM metrics.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
	// OutcomeParseFailure marks an LLM stage whose response could not be recovered as JSON.
	OutcomeParseFailure = "parse_failure"
)

// Metrics holds the Prometheus collectors for the service on a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	CollectorCalls    *prometheus.CounterVec
	LLMCalls          *prometheus.CounterVec
	NormalizerResults *prometheus.CounterVec
	BreakerChanges    *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CollectorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_calls_total",
				Help:      "Collector invocations by collector and outcome",
			},
			[]string{"collector", "outcome"},
		),
		LLMCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "LLM analysis stage calls by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		NormalizerResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizer_results_total",
				Help:      "Response normalizer results by extraction strategy",
			},
			[]string{"strategy"},
		),
		BreakerChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions by dependency and new state",
			},
			[]string{"dependency", "state"},
		),
	}

	registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.CollectorCalls,
		m.LLMCalls,
		m.NormalizerResults,
		m.BreakerChanges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry, e.g. for tests that gather values.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// CollectorCall records one collector invocation.
func (m *Metrics) CollectorCall(collector, outcome string) {
	if m == nil {
		return
	}
	m.CollectorCalls.WithLabelValues(collector, outcome).Inc()
}

// LLMCall records one analysis stage.
func (m *Metrics) LLMCall(stage, outcome string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(stage, outcome).Inc()
}

// NormalizerResult records which strategy recovered a response.
func (m *Metrics) NormalizerResult(strategy string) {
	if m == nil {
		return
	}
	m.NormalizerResults.WithLabelValues(strategy).Inc()
}

// BreakerTransition records a circuit breaker moving to state.
func (m *Metrics) BreakerTransition(dependency, state string) {
	if m == nil {
		return
	}
	m.BreakerChanges.WithLabelValues(dependency, state).Inc()
}
