package realtime

import (
	"context"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/sse"
)

// HandshakeEventType is the event type of the first frame on a fresh stream;
// its id carries the connection's client id.
const HandshakeEventType = "PB_CONNECT"

// Handler receives events dispatched on a realtime connection.
type Handler interface {
	// HandleEvent is called from the connection's dispatch goroutine. A slow
	// handler delays every event after it on the same connection.
	HandleEvent(event sse.Event)
}

// HandlerFunc adapts an ordinary function to a Handler
type HandlerFunc func(event sse.Event)

// HandleEvent calls f(event)
func (f HandlerFunc) HandleEvent(event sse.Event) {
	f(event)
}

// Registry maps topics to handlers. It is read by the connection's dispatch
// goroutine and written by callers concurrently.
type Registry interface {
	// Put registers handler for topic, replacing any existing handler
	Put(topic string, handler Handler)

	// Remove drops topic and reports whether it was registered
	Remove(topic string) bool

	// Clear drops every topic
	Clear()

	// Topics returns a sorted snapshot of the registered topics
	Topics() []string

	// Dispatch invokes every registered handler with a copy of event
	Dispatch(event sse.Event)

	// Len returns the number of registered topics
	Len() int
}

// Registrar submits the topic set of a connection to the server.
type Registrar interface {
	// SubmitSubscriptions sends {clientId, subscriptions} to the realtime endpoint
	SubmitSubscriptions(ctx context.Context, clientID string, topics []string) error
}
