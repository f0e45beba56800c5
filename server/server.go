// Package server exposes the dashboard core over HTTP: session lifecycle
// (login, logout, me) and the authenticated report endpoints that drive the
// ICARUS pivot tables and charts.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/variant-group/icarus/auth"
	"github.com/variant-group/icarus/config"
	icarusotel "github.com/variant-group/icarus/otel"
	"github.com/variant-group/icarus/report"
	"github.com/variant-group/icarus/warehouse"
)

// QuerySource supplies metric data for report loads. The server does not know
// or care how the data is fetched or cached.
type QuerySource interface {
	DateBounds(ctx context.Context) (min, max time.Time, ok bool, err error)
	PlanGroups(ctx context.Context, status string) (map[string][]string, error)
	PivotData(ctx context.Context, q warehouse.Query) ([]report.Observation, error)
	ChartData(ctx context.Context, q warehouse.Query, metric string) ([]report.SeriesPoint, error)
	LastRefresh(ctx context.Context) (warehouse.RefreshInfo, error)
}

// ServerConfig configures a Server instance.
type ServerConfig struct {
	Gate         *auth.Gate
	Source       QuerySource
	Formatter    *report.Formatter
	Colors       report.ColorAssigner
	Metrics      []string
	ChartMetrics []config.ChartMetric
	Dashboards   []config.Dashboard
	Filters      config.Filters
	CORSOrigin   string
	MaxBody      int64
	Logger       *slog.Logger
	Telemetry    *icarusotel.Metrics
	Tracing      *icarusotel.Tracing
}

// Server is the ICARUS dashboard HTTP API server.
type Server struct {
	gate         *auth.Gate
	source       QuerySource
	formatter    *report.Formatter
	colors       report.ColorAssigner
	metrics      []string
	chartMetrics []config.ChartMetric
	dashboards   []config.Dashboard
	filters      config.Filters
	corsOrigin   string
	maxBody      int64
	logger       *slog.Logger
	telemetry    *icarusotel.Metrics
	tracing      *icarusotel.Tracing
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	tracing := cfg.Tracing
	if tracing == nil {
		tracing = icarusotel.NewTracing(nil)
	}
	return &Server{
		gate:         cfg.Gate,
		source:       cfg.Source,
		formatter:    cfg.Formatter,
		colors:       cfg.Colors,
		metrics:      cfg.Metrics,
		chartMetrics: cfg.ChartMetrics,
		dashboards:   cfg.Dashboards,
		filters:      cfg.Filters,
		corsOrigin:   corsOrigin,
		maxBody:      maxBody,
		logger:       logger,
		telemetry:    cfg.Telemetry,
		tracing:      tracing,
	}
}

// Handler returns an http.Handler with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.maxBodyMiddleware(handler)

	return handler
}

// RegisterRoutes mounts the dashboard API routes onto an existing mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	// Session lifecycle
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)

	// Report surface, gated behind a valid session
	mux.HandleFunc("GET /api/dashboards", s.requireSession(s.handleDashboards))
	mux.HandleFunc("GET /api/report/filters", s.requireSession(s.handleFilters))
	mux.HandleFunc("GET /api/report/bounds", s.requireSession(s.handleBounds))
	mux.HandleFunc("GET /api/report/plans", s.requireSession(s.handlePlans))
	mux.HandleFunc("POST /api/report/load", s.requireSession(s.handleLoad))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the standard error envelope.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, details ...string) {
	body := apiError{
		Error: apiErrorBody{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		body.Error.Details = details
	}
	writeJSON(w, status, body)
}
