package pocketbase

import (
	"context"
	"fmt"
	"time"

	internalrealtime "github.com/rmacdonaldsmith/pocketbase-realtime-go/internal/realtime"
	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/realtime"
	"go.uber.org/zap"
)

// Subscribe registers handler for the collection, or for a single record when
// recordID is neither empty nor "*". The first call opens the realtime
// connection and waits up to ConnectTimeout for the handshake, which also
// registers the topic. Later calls re-submit the full topic set.
func (c *Client) Subscribe(ctx context.Context, collection, recordID string, handler realtime.Handler) error {
	if handler == nil {
		return ErrNilHandler
	}

	topic := realtime.ResolveTopic(collection, recordID)
	c.registry.Put(topic, handler)

	if token := c.Token(); token != "" && !tokenValidAt(token, time.Now()) {
		c.logger.Warn("auth token is expired or malformed; registration may be rejected")
	}

	conn, created, err := c.connection()
	if err != nil {
		return err
	}

	if created {
		id, err := conn.EnsureConnected(ctx, c.config.ConnectTimeout)
		if err != nil {
			c.discardConnection(conn)
			return fmt.Errorf("failed to connect to realtime endpoint: %w", err)
		}
		c.logger.Debug("subscribed", zap.String("topic", topic), zap.String("clientId", id))
		return nil
	}

	return c.submitSubscriptions(ctx)
}

// Unsubscribe removes the topic for collection/recordID; when that topic is
// empty every topic is removed. The remaining set is submitted on a live
// connection. While a handshake is pending nothing is posted, since the
// handshake registers the set as it is then.
func (c *Client) Unsubscribe(ctx context.Context, collection, recordID string) error {
	topic := realtime.ResolveTopic(collection, recordID)
	if topic == "" {
		c.registry.Clear()
	} else {
		c.registry.Remove(topic)
	}

	return c.submitSubscriptions(ctx)
}

// ConnectionID returns the client id of the current realtime connection, or
// "" when there is none or it is waiting for a handshake
func (c *Client) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.ConnectionID()
}

// Topics returns the registered topics in sorted order
func (c *Client) Topics() []string {
	return c.registry.Topics()
}

// Close shuts down the realtime connection and waits for it to stop. It must
// not be called from a handler. Registered handlers are kept, so a later
// Subscribe reconnects with the full topic set.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Shutdown()
		<-conn.Done()
		c.logger.Debug("realtime client closed", zap.Int("topics", c.registry.Len()))
	}
	return nil
}

// submitSubscriptions posts the current topic set on the live connection.
// While a handshake is pending nothing is sent: the handshake registers the
// registry contents as they are when it arrives.
func (c *Client) submitSubscriptions(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrSSEClientNotExist
	}

	clientID := conn.ConnectionID()
	if clientID == "" {
		c.logger.Debug("handshake pending, deferring registration")
		return nil
	}

	if err := c.SubmitSubscriptions(ctx, clientID, c.registry.Topics()); err != nil {
		return fmt.Errorf("failed to submit subscriptions: %w", err)
	}
	return nil
}

// connection returns the live connection, creating one when there is none or
// the previous one has terminated. created reports whether it is new.
func (c *Client) connection() (conn *internalrealtime.Connection, created bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		select {
		case <-c.conn.Done():
			c.logger.Info("realtime connection terminated, opening a new one")
			c.conn = nil
		default:
			return c.conn, false, nil
		}
	}

	conn, err = internalrealtime.NewConnection(internalrealtime.Config{
		Endpoint:            c.resolve(RealtimePath),
		Policy:              c.config.Reconnect,
		HTTPClient:          c.streamClient,
		RegistrationTimeout: c.config.Timeout,
		Logger:              c.logger,
	}, c.registry, c)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create realtime connection: %w", err)
	}

	c.conn = conn
	return conn, true, nil
}

// discardConnection forgets conn if it is still current and shuts it down
func (c *Client) discardConnection(conn *internalrealtime.Connection) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	conn.Shutdown()
	<-conn.Done()
}
