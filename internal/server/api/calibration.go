package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/monitor"
	"github.com/ayusman/vigil/internal/store"
)

// CalibrationHandler reads and changes the active calibration mode.
// Changes are persisted in the settings table when a store is configured.
type CalibrationHandler struct {
	monitor *monitor.Monitor
	store   *store.Store
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(m *monitor.Monitor, s *store.Store) *CalibrationHandler {
	return &CalibrationHandler{monitor: m, store: s}
}

type calibrationResponse struct {
	Mode      string  `json:"mode"`
	Threshold float64 `json:"eye_closed_threshold"`
}

type setCalibrationRequest struct {
	Mode string `json:"mode"`
}

// ServeHTTP routes requests to /api/calibration.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.set(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CalibrationHandler) get(w http.ResponseWriter, r *http.Request) {
	mode := h.monitor.Calibration()
	if mode == "" {
		mode = fatigue.CalibrationSynthetic
	}
	threshold, _ := mode.Threshold()
	writeJSON(w, http.StatusOK, calibrationResponse{
		Mode:      string(mode),
		Threshold: threshold,
	})
}

func (h *CalibrationHandler) set(w http.ResponseWriter, r *http.Request) {
	var req setCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	mode := fatigue.Calibration(req.Mode)
	if err := h.monitor.SetCalibration(mode); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if h.store != nil {
		if err := h.store.Settings().Set(store.SettingCalibration, req.Mode); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to persist calibration"})
			return
		}
	}

	threshold, _ := mode.Threshold()
	writeJSON(w, http.StatusOK, calibrationResponse{
		Mode:      req.Mode,
		Threshold: threshold,
	})
}
