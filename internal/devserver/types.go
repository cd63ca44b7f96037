package devserver

import (
	"encoding/json"
	"time"
)

// Request/Response types for the dev realtime API

// HandshakeEvent is the event type of the first frame written on every stream.
const HandshakeEvent = "PB_CONNECT"

// HandshakeData is the payload of the PB_CONNECT frame
type HandshakeData struct {
	ClientID string `json:"clientId"`
}

// SetSubscriptionsRequest represents a POST /api/realtime body
type SetSubscriptionsRequest struct {
	ClientID      string   `json:"clientId"`
	Subscriptions []string `json:"subscriptions"`
}

// PublishRequest represents a POST /api/dev/publish body
type PublishRequest struct {
	Collection string          `json:"collection"`
	RecordID   string          `json:"recordId"`
	Action     string          `json:"action"`
	Record     json.RawMessage `json:"record"`
}

// PublishResponse reports how many events were queued for delivery
type PublishResponse struct {
	Delivered int `json:"delivered"`
}

// RecordEvent is the data of every record change message
type RecordEvent struct {
	Action string          `json:"action"`
	Record json.RawMessage `json:"record"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy          bool      `json:"healthy"`
	ConnectedClients int       `json:"connectedClients"`
	StartedAt        time.Time `json:"startedAt"`
}

// ErrorResponse mirrors the PocketBase API error body
type ErrorResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}
