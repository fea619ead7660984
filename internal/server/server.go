package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

const (
	serviceName    = "ProspectPulse API"
	serviceVersion = "1.0.0"
	// maxBodyBytes bounds analyze request bodies, which carry the full comprehensive search payload.
	maxBodyBytes = 10 << 20
)

// Collector gathers prospect data for the search endpoints.
type Collector interface {
	Comprehensive(ctx context.Context, query, location string) (*types.ComprehensiveData, []types.DataSource, error)
	BasicSearch(ctx context.Context, query string) (*types.BasicSearchData, []types.DataSource, error)
	IndustryNews(ctx context.Context, location string) []types.NewsData
}

// Analyzer produces the profile, insights and sales tools for a searched prospect.
type Analyzer interface {
	Analyze(ctx context.Context, req *types.AnalyzeRequest) (*types.AnalyzeResponse, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	collector   Collector
	analyzer    Analyzer
	metrics     *observability.Metrics
	environment string
	now         func() time.Time
}

// Config holds server configuration
type Config struct {
	Port        int
	Environment string
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records request metrics on m and serves them at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for timestamps and prospect IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a new server instance
func New(cfg Config, collector Collector, analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		collector:   collector,
		analyzer:    analyzer,
		environment: cfg.Environment,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.environment == "" {
		s.environment = "development"
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // comprehensive search plus three model calls
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/prospect/search", s.handleSearch)
	mux.HandleFunc("POST /api/prospect/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/prospect/analyze", s.handleAnalyzeStatus)
	mux.HandleFunc("GET /api/industry-news", s.handleIndustryNews)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.withLogging(s.withCORS(mux))
}

// Start begins listening for requests and blocks until ctx is cancelled or the process
// receives SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("addr", s.httpServer.Addr), zap.String("environment", s.environment))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "server error")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown failed")
	}
	zap.L().Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs each request and records it in the request metrics.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(r.Method, route, rec.status, elapsed)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps a typed error onto its status and client message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		zap.L().Warn("request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.errorResponse(w, status, PublicMessage(err))
}
