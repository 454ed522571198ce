package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/monitor"
	"github.com/ayusman/vigil/internal/source"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// IngestHandler receives frames from the landmark extractor over a WebSocket
// and echoes back the paired state snapshot for each frame.
type IngestHandler struct {
	monitor *monitor.Monitor
	logger  *zap.Logger
}

// NewIngestHandler creates a new IngestHandler with the given monitor.
func NewIngestHandler(m *monitor.Monitor, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{monitor: m, logger: logger}
}

// ingestError is sent back when a frame is rejected.
type ingestError struct {
	Error string `json:"error"`
}

// ServeHTTP handles WebSocket upgrade requests and runs the ingest loop.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("extractor connected", zap.String("remote", conn.RemoteAddr().String()))
	defer h.logger.Info("extractor disconnected", zap.String("remote", conn.RemoteAddr().String()))

	for {
		var frame source.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("ingest read failed", zap.Error(err))
			}
			return
		}

		snapshot, err := h.monitor.Process(frame)
		if err != nil {
			// A rejected frame must not end the stream; report and move on.
			if writeErr := conn.WriteJSON(ingestError{Error: err.Error()}); writeErr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
	}
}
