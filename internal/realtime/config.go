package realtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/sse"
	"go.uber.org/zap"
)

var (
	// ErrEmptyEndpoint is returned when the realtime endpoint is empty
	ErrEmptyEndpoint = errors.New("realtime endpoint cannot be empty")
	// ErrNilRegistry is returned when no subscription registry is supplied
	ErrNilRegistry = errors.New("subscription registry cannot be nil")
	// ErrNilRegistrar is returned when no registration primitive is supplied
	ErrNilRegistrar = errors.New("registrar cannot be nil")
)

// Config represents configuration for a realtime Connection
type Config struct {
	// Endpoint is the absolute URL of the realtime endpoint,
	// e.g. "http://127.0.0.1:8090/api/realtime"
	Endpoint string

	// Policy controls stream reconnection; nil means sse.DefaultReconnectPolicy
	Policy *sse.ReconnectPolicy

	// HTTPClient opens the stream; it must not carry a Timeout
	HTTPClient *http.Client

	// RegistrationTimeout bounds the registration submitted after each handshake
	RegistrationTimeout time.Duration

	// Logger receives connection logs
	Logger *zap.Logger
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Policy == nil {
		policy := sse.DefaultReconnectPolicy()
		c.Policy = &policy
	}
	if c.RegistrationTimeout == 0 {
		c.RegistrationTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEmptyEndpoint
	}
	return nil
}
