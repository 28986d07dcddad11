// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/signalbot/internal/api/handler/api"
	"github.com/newthinker/signalbot/internal/api/job"
	"github.com/newthinker/signalbot/internal/api/middleware"
	"github.com/newthinker/signalbot/internal/metrics"
	"github.com/newthinker/signalbot/internal/storage/archive"
	reportstore "github.com/newthinker/signalbot/internal/storage/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for signalbot
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	APIKey         string
	RequestTimeout time.Duration // per analysis run
	MetricsPath    string
	SearchURL      string // symbol search endpoint, empty for Yahoo
}

// Dependencies are the components the HTTP handlers serve.
type Dependencies struct {
	App      handler.AnalysisApp
	Reports  reportstore.Store
	Archiver *archive.ReportArchiver // optional
	Metrics  *metrics.Registry       // optional
	Jobs     *job.Store              // optional, created when nil
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.App == nil || deps.Reports == nil {
		return nil, fmt.Errorf("app and report store are required")
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}

	mux := http.NewServeMux()

	writeTimeout := 15 * time.Second
	if cfg.RequestTimeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.RequestTimeout + 5*time.Second
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}

	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)
	s.httpServer.Handler = h

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	analysis := handler.NewAnalysisHandler(deps.App, deps.Jobs, cfg.RequestTimeout, s.logger)
	reports := handler.NewReportsHandler(deps.Reports, deps.Archiver)
	symbols := handler.NewSymbolsHandler(cfg.SearchURL, s.logger)

	auth := middleware.APIKeyAuth(cfg.APIKey)
	api := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, auth(fn))
	}

	// Public
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	// API v1
	api("GET /api/v1/analysis", analysis.Run)
	api("POST /api/v1/analysis", analysis.Run)
	api("POST /api/v1/jobs", analysis.Submit)
	api("GET /api/v1/jobs", analysis.ListJobs)
	api("GET /api/v1/jobs/{id}", analysis.GetJob)
	api("GET /api/v1/symbols", analysis.Options)
	api("GET /api/v1/symbols/search", symbols.Search)
	api("GET /api/v1/reports", reports.List)
	api("GET /api/v1/reports/{id}", reports.GetByID)
	api("GET /api/v1/reports/{id}/csv", reports.CSV)
	api("GET /api/v1/archive", reports.Archived)
	api("GET /api/v1/archive/{path...}", reports.LoadArchived)
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
