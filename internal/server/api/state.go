// Package api provides HTTP API handlers for the vigil monitoring service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/vigil/internal/attention"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/monitor"
)

// StateHandler serves the most recent paired state snapshot.
type StateHandler struct {
	monitor *monitor.Monitor
}

// NewStateHandler creates a new StateHandler with the given monitor.
func NewStateHandler(m *monitor.Monitor) *StateHandler {
	return &StateHandler{monitor: m}
}

// ServeHTTP handles GET requests to /api/state.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.monitor.Snapshot())
}

// SummaryHandler serves the live fatigue and attention summaries.
type SummaryHandler struct {
	monitor *monitor.Monitor
}

// NewSummaryHandler creates a new SummaryHandler with the given monitor.
func NewSummaryHandler(m *monitor.Monitor) *SummaryHandler {
	return &SummaryHandler{monitor: m}
}

type summaryResponse struct {
	SessionID string            `json:"session_id"`
	Fatigue   fatigue.Summary   `json:"fatigue"`
	Attention attention.Summary `json:"attention"`
}

// ServeHTTP handles GET requests to /api/summary.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fatigueSummary, attentionSummary := h.monitor.Summaries()
	writeJSON(w, http.StatusOK, summaryResponse{
		SessionID: h.monitor.SessionID(),
		Fatigue:   fatigueSummary,
		Attention: attentionSummary,
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
