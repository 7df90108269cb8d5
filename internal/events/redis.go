package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus on Redis pub/sub. Each event name maps to one
// channel under a common prefix. Subscriptions run a goroutine per channel
// for the lifetime of the bus.
type RedisBus struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	subs   []*redis.PubSub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisBus creates a bus on the given Redis client. prefix namespaces
// the channels (e.g. "campaign-engine").
func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	if prefix == "" {
		prefix = "events"
	}
	return &RedisBus{client: client, prefix: prefix, ctx: ctx, cancel: cancel}
}

func (b *RedisBus) channel(name string) string {
	return fmt.Sprintf("%s:%s", b.prefix, name)
}

// Publish marshals the payload and publishes it on the event's channel.
func (b *RedisBus) Publish(ctx context.Context, name string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", name, err)
	}
	if err := b.client.Publish(ctx, b.channel(name), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// Subscribe starts a background receiver for the named event. Handler
// errors and malformed payloads are logged and skipped.
func (b *RedisBus) Subscribe(name string, h Handler) {
	sub := b.client.Subscribe(b.ctx, b.channel(name))

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var data map[string]any
				if err := json.Unmarshal([]byte(msg.Payload), &data); err != nil {
					log.Printf("[events] bad payload on %s: %v", name, err)
					continue
				}
				if err := h(b.ctx, data); err != nil {
					log.Printf("[events] handler error for %s: %v", name, err)
				}
			}
		}
	}()
}

// Close stops all subscriptions.
func (b *RedisBus) Close() error {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		s.Close()
	}
	b.subs = nil
	return nil
}
