package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastPolicy(t *testing.T, reconnect, retryInitial bool) *ReconnectPolicy {
	t.Helper()

	policy, err := NewReconnectPolicy(reconnect).
		RetryInitial(retryInitial).
		Delay(10 * time.Millisecond).
		BackoffFactor(2).
		MaxDelay(40 * time.Millisecond).
		Build()
	require.NoError(t, err)
	return &policy
}

func nextFrame(t *testing.T, frames <-chan Frame) Frame {
	t.Helper()

	select {
	case frame, ok := <-frames:
		require.True(t, ok, "frame channel closed")
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for frame")
	}
	return Frame{}
}

func TestStreamConfig_SetDefaults(t *testing.T) {
	config := StreamConfig{URL: "http://localhost:8090/api/realtime"}
	config.SetDefaults()

	require.NotNil(t, config.Policy)
	assert.Equal(t, DefaultReconnectPolicy(), *config.Policy)
	assert.NotNil(t, config.HTTPClient)
	assert.Zero(t, config.HTTPClient.Timeout)
	assert.NotNil(t, config.Logger)
}

func TestStream_Frames(t *testing.T) {
	t.Run("delivers_frames_in_order_with_sse_headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
			assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
			assert.Equal(t, "custom", r.Header.Get("X-Test"))

			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)

			fmt.Fprint(w, "id: c1\nevent: PB_CONNECT\ndata: {}\n\n")
			fmt.Fprint(w, ": ping\n\n")
			fmt.Fprint(w, "event: users\ndata: {\"action\":\"create\"}\n\n")
			flusher.Flush()

			<-r.Context().Done()
		}))
		defer server.Close()

		stream := NewStream(StreamConfig{
			URL:    server.URL,
			Header: http.Header{"X-Test": []string{"custom"}},
			Logger: zaptest.NewLogger(t),
		})
		frames := stream.Start(context.Background())
		defer stream.Close()

		first := nextFrame(t, frames)
		assert.Equal(t, "PB_CONNECT", first.Event.Type)
		assert.Equal(t, "c1", first.Event.ID)

		second := nextFrame(t, frames)
		assert.True(t, second.IsComment())

		third := nextFrame(t, frames)
		assert.Equal(t, "users", third.Event.Type)
		assert.Equal(t, `{"action":"create"}`, third.Event.Data)

		assert.Equal(t, "c1", stream.LastEventID())
	})

	t.Run("start_is_idempotent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		stream := NewStream(StreamConfig{URL: server.URL})
		first := stream.Start(context.Background())
		second := stream.Start(context.Background())
		defer stream.Close()

		assert.Equal(t, first, second)
	})
}

func TestStream_Reconnection(t *testing.T) {
	t.Run("initial_failure_not_retried_by_default", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
		}))
		defer server.Close()

		stream := NewStream(StreamConfig{URL: server.URL, Policy: fastPolicy(t, true, false)})
		frames := stream.Start(context.Background())

		select {
		case _, ok := <-frames:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("stream should terminate")
		}
		<-stream.Done()

		require.Error(t, stream.Err())
		assert.Contains(t, stream.Err().Error(), "streaming failed with status 401")
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("initial_failure_retried_when_enabled", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: after-retry\n\n")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		stream := NewStream(StreamConfig{URL: server.URL, Policy: fastPolicy(t, true, true)})
		frames := stream.Start(context.Background())
		defer stream.Close()

		frame := nextFrame(t, frames)
		assert.Equal(t, "after-retry", frame.Event.Data)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("reconnects_after_stream_ends_and_sends_last_event_id", func(t *testing.T) {
		var attempts atomic.Int32
		lastEventIDs := make(chan string, 4)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := attempts.Add(1)
			lastEventIDs <- r.Header.Get("Last-Event-ID")

			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, "id: conn-%d\nevent: PB_CONNECT\ndata: {}\n\n", n)
			w.(http.Flusher).Flush()

			if n > 1 {
				<-r.Context().Done()
			}
		}))
		defer server.Close()

		var disconnects, reconnecting atomic.Int32
		stream := NewStream(StreamConfig{
			URL:            server.URL,
			Policy:         fastPolicy(t, true, false),
			OnDisconnect:   func(error) { disconnects.Add(1) },
			OnReconnecting: func(int, time.Duration) { reconnecting.Add(1) },
		})
		frames := stream.Start(context.Background())
		defer stream.Close()

		assert.Equal(t, "conn-1", nextFrame(t, frames).Event.ID)
		assert.Equal(t, "conn-2", nextFrame(t, frames).Event.ID)

		assert.Equal(t, "", <-lastEventIDs)
		assert.Equal(t, "conn-1", <-lastEventIDs)
		assert.Equal(t, int32(1), disconnects.Load())
		assert.Equal(t, int32(1), reconnecting.Load())
	})

	t.Run("disabled_reconnect_terminates_after_stream_ends", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: once\n\n")
		}))
		defer server.Close()

		stream := NewStream(StreamConfig{URL: server.URL, Policy: fastPolicy(t, false, false)})
		frames := stream.Start(context.Background())

		assert.Equal(t, "once", nextFrame(t, frames).Event.Data)

		select {
		case <-stream.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("stream should terminate")
		}
		assert.ErrorIs(t, stream.Err(), ErrStreamClosed)
	})
}

func TestStream_Close(t *testing.T) {
	t.Run("close_before_start_is_noop", func(t *testing.T) {
		stream := NewStream(StreamConfig{URL: "http://localhost:1"})
		assert.NoError(t, stream.Close())
	})

	t.Run("close_stops_blocked_stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		stream := NewStream(StreamConfig{URL: server.URL})
		stream.Start(context.Background())

		done := make(chan struct{})
		go func() {
			stream.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Close should return")
		}
		assert.NoError(t, stream.Err())
	})
}
