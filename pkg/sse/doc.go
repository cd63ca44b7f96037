// Package sse provides a text/event-stream client: a frame parser, a reconnect
// policy, and a streaming transport that enforces that policy.
//
// This package defines the building blocks consumed by the realtime connection:
//   - Parser: turns a byte stream into discrete frames (named events or comments)
//   - ReconnectPolicy: immutable backoff configuration with Delay(n)
//   - Stream: a long-lived GET that reconnects according to a ReconnectPolicy
//
// Example usage:
//
//	policy, err := sse.NewReconnectPolicy(true).
//		RetryInitial(false).
//		Delay(time.Second).
//		BackoffFactor(2).
//		MaxDelay(time.Minute).
//		Build()
//	if err != nil {
//		return err
//	}
//
//	stream := sse.NewStream(sse.StreamConfig{URL: "http://localhost:8090/api/realtime", Policy: policy})
//	frames := stream.Start(ctx)
//	for frame := range frames {
//		if frame.Kind == sse.FrameEvent {
//			handle(frame.Event)
//		}
//	}
//	if err := stream.Err(); err != nil {
//		return err
//	}
package sse
