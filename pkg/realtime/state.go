package realtime

// State is the lifecycle state of a realtime connection.
type State int

const (
	// StateIdle is a connection that has not been started
	StateIdle State = iota

	// StateConnecting is waiting for the stream to open
	StateConnecting

	// StateAwaitingHandshake has an open stream but no client id yet
	StateAwaitingHandshake

	// StateConnected has received a handshake and dispatches events
	StateConnected

	// StateReconnecting lost its stream and waits for the next attempt
	StateReconnecting

	// StateShuttingDown has been asked to stop
	StateShuttingDown

	// StateClosed has a finished dispatch loop and cannot be reused
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IsDispatching reports whether events reaching the connection are delivered to handlers
func (s State) IsDispatching() bool {
	return s == StateConnected || s == StateReconnecting
}
