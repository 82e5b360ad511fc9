package events

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives published events.
type Handler func(Event)

// UnsubscribeFunc removes a subscription. Calling it more than once is safe.
type UnsubscribeFunc func()

// subscription pairs a handler with its registration id so unsubscribe can
// find it again without disturbing the insertion order.
type subscription struct {
	id int
	fn Handler
}

// Bus is a typed publish/subscribe dispatcher. Handlers may subscribe and
// unsubscribe while a publish is in flight: dispatch iterates a snapshot of
// the handler list, so no iterator is ever invalidated.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[Type][]subscription
}

// NewBus creates an empty event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger: logger.With(zap.String("component", "event_bus")),
		subs:   make(map[Type][]subscription),
	}
}

// Subscribe registers a handler for one event type, or for every type when
// t is Wildcard. The returned unsubscribe func is idempotent.
func (b *Bus) Subscribe(t Type, h Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, fn: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[t]
			for i, s := range list {
				if s.id == id {
					b.subs[t] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish dispatches an event to type subscribers and wildcard subscribers,
// synchronously, in subscription order within each set.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.EventType()])+len(b.subs[Wildcard]))
	for _, s := range b.subs[e.EventType()] {
		handlers = append(handlers, s.fn)
	}
	for _, s := range b.subs[Wildcard] {
		handlers = append(handlers, s.fn)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// SubscriberCount reports how many handlers are registered for a type.
func (b *Bus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}
