package events

import (
	"context"
	"log"
	"sync"
)

// MemoryBus is an in-process bus that delivers events synchronously to
// subscribers in registration order. It is the default for single-binary
// deployments and for tests.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the named event.
func (b *MemoryBus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers the event to every subscriber. Handler errors are
// logged and do not stop delivery to remaining subscribers.
func (b *MemoryBus) Publish(ctx context.Context, name string, data map[string]any) error {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[name]...)
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, data); err != nil {
			log.Printf("[events] handler error for %s: %v", name, err)
		}
	}
	return nil
}
