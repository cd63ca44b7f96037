// Package realtime provides the contracts of the PocketBase realtime subsystem.
//
// This package defines the core abstractions shared by the connection and the client facade:
//   - Handler / HandlerFunc: callbacks invoked for every event pushed on a connection
//   - Registry: the topic-to-handler table that survives reconnects
//   - Registrar: the registration submission primitive (POST {clientId, subscriptions})
//   - ResolveTopic: maps (collection, recordID) to a topic string
//
// Every non-handshake event received on a connection is delivered to every
// registered handler. The server only pushes events for the topics submitted
// through the Registrar, so handlers that subscribe to several topics should
// inspect Event.Type, which carries the topic the server matched.
//
// Example usage:
//
//	err := client.Subscribe(ctx, "users", "*", realtime.HandlerFunc(func(event sse.Event) {
//		log.Printf("%s: %s", event.Type, event.Data)
//	}))
//	if err != nil {
//		return err
//	}
//
//	// Drop a single topic, or everything with an empty collection
//	err = client.Unsubscribe(ctx, "users", "")
package realtime
