package pocketbase

import (
	"net/http"
	"time"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/sse"
	"go.uber.org/zap"
)

// RealtimePath is the realtime endpoint, relative to the server URL
const RealtimePath = "/api/realtime"

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the PocketBase server (e.g., "http://127.0.0.1:8090")
	ServerURL string

	// Token is sent verbatim in the Authorization header of every POST
	Token string

	// Timeout for regular HTTP requests; the realtime stream is not bounded by it
	Timeout time.Duration

	// ConnectTimeout bounds the wait for the PB_CONNECT handshake
	ConnectTimeout time.Duration

	// Reconnect controls stream reconnection; nil means sse.DefaultReconnectPolicy
	Reconnect *sse.ReconnectPolicy

	// HTTPClient overrides the transport used for requests and the stream
	HTTPClient *http.Client

	// Logger receives client logs
	Logger *zap.Logger
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 3 * time.Second
	}
	if c.Reconnect == nil {
		policy := sse.DefaultReconnectPolicy()
		c.Reconnect = &policy
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// SubscriptionsRequest is the registration body posted to the realtime endpoint
type SubscriptionsRequest struct {
	ClientID      string   `json:"clientId"`
	Subscriptions []string `json:"subscriptions"`
}
