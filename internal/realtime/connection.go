package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	realtimepkg "github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/realtime"
	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/sse"
	"go.uber.org/zap"
)

// ErrConnectionClosed is returned when starting a connection that was shut down.
var ErrConnectionClosed = errors.New("realtime connection is closed")

// Connection owns one realtime stream: it performs the handshake, registers the
// registry's topics, and dispatches every other event to the registry. A
// Connection cannot be restarted after Shutdown; create a new one instead.
type Connection struct {
	config    Config
	registry  realtimepkg.Registry
	registrar realtimepkg.Registrar
	logger    *zap.Logger
	stream    *sse.Stream

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        realtimepkg.State
	started      bool
	connectionID string
	handshake    chan struct{} // closed once connectionID becomes non-empty

	shutdownOnce sync.Once
	shutdown     chan struct{}
	done         chan struct{}
}

// NewConnection creates an idle connection; call Start or EnsureConnected to open it
func NewConnection(config Config, registry realtimepkg.Registry, registrar realtimepkg.Registrar) (*Connection, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if registrar == nil {
		return nil, ErrNilRegistrar
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		config:    config,
		registry:  registry,
		registrar: registrar,
		logger:    config.Logger.With(zap.String("endpoint", config.Endpoint)),
		ctx:       ctx,
		cancel:    cancel,
		state:     realtimepkg.StateIdle,
		handshake: make(chan struct{}),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	c.stream = sse.NewStream(sse.StreamConfig{
		URL:        config.Endpoint,
		Policy:     config.Policy,
		HTTPClient: config.HTTPClient,
		Logger:     config.Logger,
		OnConnect: func() {
			c.setState(realtimepkg.StateAwaitingHandshake)
		},
		OnDisconnect: func(err error) {
			c.logger.Info("realtime stream disconnected", zap.Error(err))
		},
		OnReconnecting: func(int, time.Duration) {
			c.resetConnectionID()
		},
	})

	return c, nil
}

// Start opens the stream and spawns the dispatch loop. It returns immediately
// and is idempotent while the connection is running.
func (c *Connection) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.shutdown:
		return ErrConnectionClosed
	default:
	}

	if c.started {
		return nil
	}
	c.started = true
	c.state = realtimepkg.StateConnecting

	frames := c.stream.Start(c.ctx)
	go c.run(frames)

	return nil
}

// EnsureConnected starts the connection if needed and waits up to timeout for
// the handshake. On timeout the connection is shut down and the returned error
// wraps realtime.ErrTimeout.
func (c *Connection) EnsureConnected(ctx context.Context, timeout time.Duration) (string, error) {
	if err := c.Start(); err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		id := c.connectionID
		handshake := c.handshake
		c.mu.Unlock()

		if id != "" {
			return id, nil
		}

		select {
		case <-handshake:
		case <-timer.C:
			c.Shutdown()
			return "", fmt.Errorf("%w after %s", realtimepkg.ErrTimeout, timeout)
		case <-c.done:
			c.Shutdown()
			if err := c.stream.Err(); err != nil {
				return "", fmt.Errorf("%w: stream closed before handshake: %v", realtimepkg.ErrTimeout, err)
			}
			return "", fmt.Errorf("%w: connection closed before handshake", realtimepkg.ErrTimeout)
		case <-ctx.Done():
			c.Shutdown()
			return "", ctx.Err()
		}
	}
}

// ConnectionID returns the client id of the last handshake, or "" while
// waiting for one
func (c *Connection) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// State returns the current lifecycle state
func (c *Connection) State() realtimepkg.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel that's closed when the dispatch loop and its stream
// have exited
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Shutdown signals the dispatch loop to stop. It does not wait and is safe
// to call any number of times.
func (c *Connection) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		close(c.shutdown)
		c.cancel()

		if c.started {
			c.state = realtimepkg.StateShuttingDown
			return
		}
		c.state = realtimepkg.StateClosed
		close(c.done)
	})
}

// Close shuts the connection down
func (c *Connection) Close() error {
	c.Shutdown()
	return nil
}

func (c *Connection) run(frames <-chan sse.Frame) {
	defer func() {
		c.cancel()
		c.stream.Close()
		c.mu.Lock()
		c.state = realtimepkg.StateClosed
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		select {
		case <-c.shutdown:
			c.logger.Debug("realtime connection shut down")
			return

		case frame, ok := <-frames:
			if !ok {
				c.logger.Warn("realtime stream ended", zap.Error(c.stream.Err()))
				return
			}

			// Both cases may be ready at once; never dispatch after shutdown.
			select {
			case <-c.shutdown:
				return
			default:
			}

			c.handleFrame(frame)
		}
	}
}

func (c *Connection) handleFrame(frame sse.Frame) {
	if frame.IsComment() {
		c.logger.Debug("received comment", zap.String("comment", frame.Comment))
		return
	}

	event := frame.Event
	if event.Type == realtimepkg.HandshakeEventType && event.ID != "" {
		c.handleHandshake(event.ID)
		return
	}

	c.registry.Dispatch(event)
}

// handleHandshake stores the new client id and registers the current topics.
// The registration is best-effort: failures are logged, not retried.
func (c *Connection) handleHandshake(id string) {
	c.setConnectionID(id)

	topics := c.registry.Topics()

	ctx, cancel := context.WithTimeout(c.ctx, c.config.RegistrationTimeout)
	defer cancel()

	if err := c.registrar.SubmitSubscriptions(ctx, id, topics); err != nil {
		c.logger.Warn("failed to register subscriptions after handshake",
			zap.String("clientId", id),
			zap.Strings("subscriptions", topics),
			zap.Error(err))
		return
	}

	c.logger.Debug("registered subscriptions",
		zap.String("clientId", id),
		zap.Strings("subscriptions", topics))
}

func (c *Connection) setConnectionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasEmpty := c.connectionID == ""
	c.connectionID = id
	c.setStateLocked(realtimepkg.StateConnected)

	if wasEmpty {
		close(c.handshake)
	}
}

// resetConnectionID forgets the id of a dropped stream until the next handshake
func (c *Connection) resetConnectionID() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setStateLocked(realtimepkg.StateReconnecting)

	if c.connectionID == "" {
		return
	}
	c.connectionID = ""
	c.handshake = make(chan struct{})
}

func (c *Connection) setState(state realtimepkg.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(state)
}

// IMPORTANT: It must be called only when c.mu is already held.
func (c *Connection) setStateLocked(state realtimepkg.State) {
	if c.state == realtimepkg.StateShuttingDown || c.state == realtimepkg.StateClosed {
		return
	}
	if c.state != state {
		c.logger.Debug("state changed",
			zap.Stringer("from", c.state),
			zap.Stringer("to", state),
			zap.Bool("dispatching", state.IsDispatching()))
	}
	c.state = state
}
