// Package server provides the HTTP surface of the vigil monitoring service:
// frame ingest, live state, calibration control, and stored session reports.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/monitor"
	"github.com/ayusman/vigil/internal/server/api"
	"github.com/ayusman/vigil/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Store   *store.Store
	Monitor *monitor.Monitor
	Logger  *zap.Logger
}

// Server represents the HTTP server for the vigil service.
type Server struct {
	config Config
	logger *zap.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		sessionsHandler := api.NewSessionsHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionsHandler)
		s.mux.Handle("/api/sessions/", sessionsHandler)
	}

	if s.config.Monitor != nil {
		s.mux.Handle("/api/state", api.NewStateHandler(s.config.Monitor))
		s.mux.Handle("/api/summary", api.NewSummaryHandler(s.config.Monitor))
		s.mux.Handle("/api/calibration", api.NewCalibrationHandler(s.config.Monitor, s.config.Store))
		s.mux.Handle("/api/ingest", NewIngestHandler(s.config.Monitor, s.logger))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
