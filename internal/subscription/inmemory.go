package subscription

import (
	"sort"
	"sync"

	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/realtime"
	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/sse"
	"go.uber.org/zap"
)

var _ realtime.Registry = (*InMemoryRegistry)(nil)

// InMemoryRegistry is a mutex-guarded topic-to-handler table.
type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	handlers map[string]realtime.Handler
}

// NewInMemoryRegistry creates an empty registry
func NewInMemoryRegistry(logger *zap.Logger) *InMemoryRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InMemoryRegistry{
		logger:   logger,
		handlers: make(map[string]realtime.Handler),
	}
}

// Put registers handler for topic, replacing any previous handler
func (r *InMemoryRegistry) Put(topic string, handler realtime.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[topic] = handler
}

// Remove drops topic and reports whether it was registered
func (r *InMemoryRegistry) Remove(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[topic]; !ok {
		return false
	}
	delete(r.handlers, topic)
	return true
}

// Clear drops every topic
func (r *InMemoryRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.handlers)
}

// Topics returns the registered topics in sorted order
func (r *InMemoryRegistry) Topics() []string {
	r.mu.RLock()
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	r.mu.RUnlock()

	sort.Strings(topics)
	return topics
}

// Len returns the number of registered topics
func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}

// Dispatch delivers event to every registered handler. Handlers are copied out
// under the read lock and invoked sequentially without it, so a handler may
// subscribe or unsubscribe without deadlocking.
func (r *InMemoryRegistry) Dispatch(event sse.Event) {
	r.mu.RLock()
	handlers := make([]topicHandler, 0, len(r.handlers))
	for topic, handler := range r.handlers {
		handlers = append(handlers, topicHandler{topic: topic, handler: handler})
	}
	r.mu.RUnlock()

	for _, th := range handlers {
		r.invoke(th, event)
	}
}

type topicHandler struct {
	topic   string
	handler realtime.Handler
}

func (r *InMemoryRegistry) invoke(th topicHandler, event sse.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("event handler panicked",
				zap.String("topic", th.topic),
				zap.String("eventType", event.Type),
				zap.Any("panic", recovered))
		}
	}()

	th.handler.HandleEvent(event)
}
