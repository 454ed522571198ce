package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/vigil/internal/store"
)

// SessionsHandler serves stored session reports.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

// ServeHTTP routes requests to /api/sessions and /api/sessions/{id}.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list sessions"})
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load session"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
