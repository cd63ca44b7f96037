package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Handlers contains HTTP handlers for the dev realtime API
type Handlers struct {
	hub               *Hub
	logger            *zap.Logger
	keepaliveInterval time.Duration
	startedAt         time.Time
}

// NewHandlers creates handlers bound to a hub
func NewHandlers(hub *Hub, keepaliveInterval time.Duration, logger *zap.Logger) *Handlers {
	return &Handlers{
		hub:               hub,
		logger:            logger,
		keepaliveInterval: keepaliveInterval,
		startedAt:         time.Now(),
	}
}

// Connect handles GET /api/realtime
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "Streaming is not supported.", http.StatusInternalServerError)
		return
	}

	client, err := h.hub.Connect()
	if err != nil {
		writeError(w, "Failed to register realtime client.", http.StatusServiceUnavailable)
		return
	}
	defer h.hub.Disconnect(client.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	handshake, err := json.Marshal(HandshakeData{ClientID: client.ID()})
	if err != nil {
		h.logger.Error("failed to marshal handshake", zap.Error(err))
		return
	}
	if err := writeSSEMessage(w, client.ID(), HandshakeEvent, handshake); err != nil {
		return
	}
	flusher.Flush()

	h.streamWithKeepalive(w, r, flusher, client)
}

// streamWithKeepalive delivers queued messages and keepalive comments until
// the request ends or the hub closes.
func (h *Handlers) streamWithKeepalive(w http.ResponseWriter, r *http.Request, flusher http.Flusher, client *Client) {
	ctx := r.Context()

	var keepalive <-chan time.Time
	if h.keepaliveInterval > 0 {
		ticker := time.NewTicker(h.keepaliveInterval)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-h.hub.Done():
			return

		case <-keepalive:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case msg := <-client.Messages():
			if err := writeSSEMessage(w, client.ID(), msg.Event, msg.Data); err != nil {
				h.logger.Debug("stream write failed",
					zap.String("clientId", client.ID()),
					zap.Error(err),
				)
				return
			}
			flusher.Flush()
		}
	}
}

// SetSubscriptions handles POST /api/realtime
func (h *Handlers) SetSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req SetSubscriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Failed to load the submitted data due to invalid formatting.", http.StatusBadRequest)
		return
	}

	if req.ClientID == "" {
		writeError(w, "Missing or invalid client id.", http.StatusNotFound)
		return
	}

	if err := h.hub.SetSubscriptions(req.ClientID, req.Subscriptions); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			writeError(w, "Missing or invalid client id.", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to update subscriptions.", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /api/dev/publish
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Failed to load the submitted data due to invalid formatting.", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Collection) == "" {
		writeError(w, "collection is required.", http.StatusBadRequest)
		return
	}
	if req.Action == "" {
		req.Action = "update"
	}

	delivered, err := h.hub.Publish(req.Collection, req.RecordID, req.Action, req.Record)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, PublishResponse{Delivered: delivered}, http.StatusOK)
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Healthy:          true,
		ConnectedClients: h.hub.ClientCount(),
		StartedAt:        h.startedAt,
	}, http.StatusOK)
}

// Helper functions

// writeSSEMessage writes one event frame. Data is written on a single line.
func writeSSEMessage(w io.Writer, id, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "id:%s\nevent:%s\ndata:%s\n\n", id, event, data)
	return err
}

// writeError writes a PocketBase-style error body
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Code:    statusCode,
		Message: message,
		Data:    map[string]any{},
	}, statusCode)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
