package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/server"
)

const metricsNamespace = "prospectpulse"

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the ProspectPulse REST API.

Endpoints:
  GET  /api/health              Service health
  GET  /api/prospect/search     Research a prospect (?query=...&location=...)
  POST /api/prospect/analyze    Analyze a search result
  GET  /api/prospect/analyze    Analysis service status
  GET  /api/industry-news       Restaurant industry news (?location=...)
  GET  /metrics                 Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	metrics := observability.NewMetrics(metricsNamespace)
	a, err := newApp(cmd.Context(), cfg, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	zap.L().Info("dependencies ready",
		zap.Bool("search_configured", cfg.HasSearchKey()),
		zap.Bool("llm_configured", a.analyzer.Configured()),
		zap.String("search_provider", cfg.Search.Provider),
	)

	srv := server.New(server.Config{
		Port:        cfg.Server.Port,
		Environment: cfg.Server.Environment,
	}, a.collector, a.analyzer, server.WithMetrics(metrics))

	return srv.Start(cmd.Context())
}
