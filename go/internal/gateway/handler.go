package gateway

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/app"
	"github.com/mcdev12/pomogame/go/internal/broadcast"
)

// StatusProvider exposes the daemon's current position.
type StatusProvider interface {
	Status() app.Status
	WriteCurrent(w io.Writer, override string) error
}

// StreamRegistry accepts new frame sinks.
type StreamRegistry interface {
	AddStream(w io.Writer, override string) *broadcast.Sink
}

// Handler serves the listener WebSocket and the read-only status routes.
type Handler struct {
	manager *ConnectionManager
	status  StatusProvider
	streams StreamRegistry
}

func NewHandler(cm *ConnectionManager, status StatusProvider, streams StreamRegistry) *Handler {
	return &Handler{
		manager: cm,
		status:  status,
		streams: streams,
	}
}

// HandleListen upgrades the request and registers the connection as a sink.
// The current frame is sent first, like a socket listen.
func (h *Handler) HandleListen(w http.ResponseWriter, r *http.Request) {
	override := r.URL.Query().Get("override")

	conn, err := h.manager.Upgrade(w, r, override)
	if err != nil {
		log.Error().Err(err).Str("override", override).Msg("failed to upgrade websocket connection")
		return
	}

	if err := h.status.WriteCurrent(conn, override); err != nil {
		log.Debug().Err(err).Str("connection_id", conn.ID).Msg("listener went away before registration")
		_ = conn.Close()
		return
	}

	sink := h.streams.AddStream(conn, override)
	log.Debug().
		Str("connection_id", conn.ID).
		Str("sink_id", sink.ID.String()).
		Msg("websocket listener registered")
}

// HandleState returns the current status as JSON.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.status.Status())
}

// HandleStats reports the number of open WebSocket listeners.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{"websocket_connections": h.manager.Count()})
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/listen", h.HandleListen)
	mux.HandleFunc("/ws/stats", h.HandleStats)
	mux.HandleFunc("/api/state", h.HandleState)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
