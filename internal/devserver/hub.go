package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// ErrClientNotFound is returned for operations on an unknown client id
var ErrClientNotFound = errors.New("client not found")

// ErrHubClosed is returned by Connect after Close
var ErrHubClosed = errors.New("hub closed")

// DefaultClientBuffer is the per-client outbound queue size
const DefaultClientBuffer = 64

// Message is a single SSE message queued for a client
type Message struct {
	Event string
	Data  []byte
}

// Client is one connected realtime stream
type Client struct {
	id            string
	send          chan Message
	subscriptions map[string]struct{}
}

// ID returns the client id sent in the handshake
func (c *Client) ID() string {
	return c.id
}

// Messages returns the client's outbound queue
func (c *Client) Messages() <-chan Message {
	return c.send
}

// Hub tracks connected clients and their topic subscriptions
type Hub struct {
	logger     *zap.Logger
	bufferSize int

	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
	done    chan struct{}
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger, bufferSize int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultClientBuffer
	}
	return &Hub{
		logger:     logger,
		bufferSize: bufferSize,
		clients:    make(map[string]*Client),
		done:       make(chan struct{}),
	}
}

// Connect registers a new client with a fresh id
func (h *Hub) Connect() (*Client, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client id: %w", err)
	}

	client := &Client{
		id:            id,
		send:          make(chan Message, h.bufferSize),
		subscriptions: make(map[string]struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.clients[id] = client

	h.logger.Debug("client connected", zap.String("clientId", id))
	return client, nil
}

// Disconnect forgets a client and its subscriptions
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[clientID]; ok {
		delete(h.clients, clientID)
		h.logger.Debug("client disconnected", zap.String("clientId", clientID))
	}
}

// SetSubscriptions replaces the client's whole subscription set
func (h *Hub) SetSubscriptions(clientID string, topics []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	client.subscriptions = make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		if topic != "" {
			client.subscriptions[topic] = struct{}{}
		}
	}

	h.logger.Debug("subscriptions updated",
		zap.String("clientId", clientID),
		zap.Strings("subscriptions", topics),
	)
	return nil
}

// Subscriptions returns the sorted subscription set of a client
func (h *Hub) Subscriptions(clientID string) ([]string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return nil, false
	}

	topics := make([]string, 0, len(client.subscriptions))
	for topic := range client.subscriptions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics, true
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues a record change for every client subscribed to the
// collection or to the specific record. A client subscribed to both
// receives two messages, each typed with the topic it matched.
// Returns the number of queued messages.
func (h *Hub) Publish(collection, recordID, action string, record json.RawMessage) (int, error) {
	if collection == "" {
		return 0, errors.New("collection is required")
	}
	if len(record) == 0 {
		record = json.RawMessage("{}")
	}

	data, err := json.Marshal(RecordEvent{Action: action, Record: record})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record event: %w", err)
	}

	topics := []string{collection}
	if recordID != "" {
		topics = append(topics, collection+"/"+recordID)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.clients {
		for _, topic := range topics {
			if _, ok := client.subscriptions[topic]; !ok {
				continue
			}
			select {
			case client.send <- Message{Event: topic, Data: data}:
				delivered++
			default:
				h.logger.Warn("client queue full, dropping message",
					zap.String("clientId", client.id),
					zap.String("topic", topic),
				)
			}
		}
	}

	return delivered, nil
}

// Done is closed when the hub shuts down
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Close ends every open stream and rejects new clients
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}
