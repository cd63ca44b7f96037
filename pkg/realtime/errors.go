package realtime

import "errors"

var (
	// ErrTimeout is returned when no handshake arrives within the connect timeout
	ErrTimeout = errors.New("timeout waiting for realtime connection id")
	// ErrSSEClientNotExist is returned when an operation needs a realtime connection and none was established
	ErrSSEClientNotExist = errors.New("realtime connection not created yet")
)
