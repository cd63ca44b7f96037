package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStreamClosed is reported when the server ends the response body.
var ErrStreamClosed = errors.New("stream closed by server")

// StreamConfig configures a Stream
type StreamConfig struct {
	// URL of the text/event-stream endpoint
	URL string

	// Header is added to every connection attempt (optional)
	Header http.Header

	// Policy controls reconnection; nil means DefaultReconnectPolicy
	Policy *ReconnectPolicy

	// HTTPClient performs the GET. It must not carry a Timeout, since the
	// response body stays open for the life of the stream.
	HTTPClient *http.Client

	// Logger receives connection lifecycle logs
	Logger *zap.Logger

	// OnConnect is called after every successful connection (optional)
	OnConnect func()

	// OnDisconnect is called when an established connection ends (optional)
	OnDisconnect func(err error)

	// OnReconnecting is called before waiting for a reconnect attempt (optional)
	OnReconnecting func(attempt int, delay time.Duration)
}

// SetDefaults sets reasonable default values for StreamConfig
func (sc *StreamConfig) SetDefaults() {
	if sc.Policy == nil {
		policy := DefaultReconnectPolicy()
		sc.Policy = &policy
	}
	if sc.HTTPClient == nil {
		sc.HTTPClient = &http.Client{}
	}
	if sc.Logger == nil {
		sc.Logger = zap.NewNop()
	}
}

// Stream is a long-lived text/event-stream connection that reconnects according
// to its ReconnectPolicy. Frames are delivered in arrival order on an
// unbuffered channel, which is closed when the stream terminates.
type Stream struct {
	config StreamConfig
	logger *zap.Logger

	frames chan Frame
	done   chan struct{}

	mu          sync.Mutex
	started     bool
	cancel      context.CancelFunc
	err         error
	lastEventID string
}

// NewStream creates a stream; nothing is opened until Start is called
func NewStream(config StreamConfig) *Stream {
	config.SetDefaults()

	return &Stream{
		config: config,
		logger: config.Logger.With(zap.String("url", config.URL)),
		frames: make(chan Frame),
		done:   make(chan struct{}),
	}
}

// Start opens the stream in the background and returns the frame channel.
// Calling Start again returns the same channel.
func (s *Stream) Start(ctx context.Context) <-chan Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return s.frames
	}
	s.started = true

	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.run(streamCtx)

	return s.frames
}

// Done returns a channel that's closed when the stream has terminated
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error once the stream gave up reconnecting. It is
// nil while the stream is running and after a cancellation.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastEventID returns the id of the most recent event that carried one
func (s *Stream) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

// Cancel asks the stream to stop without waiting for it
func (s *Stream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// Close stops the stream and waits for the background goroutine to finish
func (s *Stream) Close() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}

	s.Cancel()
	<-s.done
	return nil
}

// run handles the connect loop with reconnection
func (s *Stream) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.frames)

	policy := *s.config.Policy
	connectedBefore := false
	attempt := 0

	for {
		established, err := s.connectAndStream(ctx)
		if ctx.Err() != nil {
			s.logger.Debug("stream cancelled")
			return
		}
		if err == nil {
			err = ErrStreamClosed
		}

		if established {
			connectedBefore = true
			attempt = 0
			if s.config.OnDisconnect != nil {
				s.config.OnDisconnect(err)
			}
		}

		if !policy.ShouldRetry(connectedBefore) {
			s.logger.Warn("stream terminated", zap.Error(err))
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		delay := policy.Delay(attempt)
		attempt++

		s.logger.Info("reconnecting stream",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		if s.config.OnReconnecting != nil {
			s.config.OnReconnecting(attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// connectAndStream performs one connection attempt and pumps frames until the
// body ends. established reports whether the server answered 200.
func (s *Stream) connectAndStream(ctx context.Context) (established bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create streaming request: %w", err)
	}

	for key, values := range s.config.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := s.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("streaming failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	s.logger.Debug("stream connected")
	if s.config.OnConnect != nil {
		s.config.OnConnect()
	}

	parser := NewParser(resp.Body)
	for {
		frame, err := parser.Next()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return true, err
		}

		if frame.Kind == FrameEvent && frame.Event.ID != "" {
			s.mu.Lock()
			s.lastEventID = frame.Event.ID
			s.mu.Unlock()
		}

		select {
		case s.frames <- frame:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}
