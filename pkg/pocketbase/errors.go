package pocketbase

import (
	"errors"
	"fmt"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/realtime"
)

var (
	// ErrTimeout is returned when no handshake arrives within ConnectTimeout
	ErrTimeout = realtime.ErrTimeout
	// ErrSSEClientNotExist is returned by Unsubscribe before any connection exists
	ErrSSEClientNotExist = realtime.ErrSSEClientNotExist
	// ErrNilHandler is returned when Subscribe is called without a handler
	ErrNilHandler = errors.New("handler cannot be nil")
)

// APIError is an error body returned by the server
type APIError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Code, e.Message)
}

// RequestFailedError reports a request that produced no usable response
type RequestFailedError struct {
	Method string
	Path   string
	Err    error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}
