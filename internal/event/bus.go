package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"tenant-auth-core/internal/metrics"
)

const defaultBuffer = 256

// InMemoryBus fans security events out to every subscriber. Publishing never
// blocks the request path: a subscriber whose buffer is full misses the event
// and the drop is counted.
type InMemoryBus struct {
	mu          sync.RWMutex
	buffer      int
	subscribers map[string]chan Event
}

func NewBus() *InMemoryBus {
	return NewBufferedBus(defaultBuffer)
}

func NewBufferedBus(buffer int) *InMemoryBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &InMemoryBus{
		buffer:      buffer,
		subscribers: make(map[string]chan Event),
	}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			metrics.EventsDropped.WithLabelValues(string(e.Type)).Inc()
			slog.Warn("security event dropped", "subscriber", id, "type", string(e.Type))
		}
	}
}

// Subscribe returns the event channel and a function that closes it. The
// function is safe to call more than once.
func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, b.buffer)
	b.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
}

func (b *InMemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Discard drops everything. Tests and callers without an audit trail use it.
type Discard struct{}

func (Discard) Publish(Event) {}

func (Discard) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}
