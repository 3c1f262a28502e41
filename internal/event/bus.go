// Package event carries pipeline notifications (scan lifecycle, detected
// anomalies, dispatched alerts) between components without coupling them.
package event

import (
	"context"
	"sync"

	"github.com/HerbHall/netsentry/pkg/plugin"
	"go.uber.org/zap"
)

// topicWildcard subscribes a handler to every topic.
const topicWildcard = "*"

// Compile-time interface guard.
var _ plugin.EventBus = (*Bus)(nil)

// Bus is the in-memory plugin.EventBus. Publish runs handlers in the
// caller's goroutine; PublishAsync hands the whole fan-out to one
// background goroutine. Delivery order across handlers is unspecified.
// A panicking handler is logged and never takes down its siblings or
// the publisher.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]plugin.EventHandler
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string]map[uint64]plugin.EventHandler),
	}
}

// Subscribe registers a handler for one topic and returns its
// unsubscribe function.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) (unsubscribe func()) {
	return b.add(topic, handler)
}

// SubscribeAll registers a handler for every topic.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) (unsubscribe func()) {
	return b.add(topicWildcard, handler)
}

func (b *Bus) add(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]plugin.EventHandler)
	}
	b.subs[topic][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers the event synchronously to topic and wildcard
// subscribers.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, h := range b.snapshot(event.Topic) {
		b.deliver(ctx, h, event)
	}
	return nil
}

// PublishAsync delivers the event from a background goroutine. Handlers
// for one event still run sequentially; events published earlier are not
// guaranteed to be handled first.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	handlers := b.snapshot(event.Topic)
	if len(handlers) == 0 {
		return
	}
	go func() {
		for _, h := range handlers {
			b.deliver(ctx, h, event)
		}
	}()
}

// snapshot copies the matching handlers so delivery happens outside the
// lock and an unsubscribe during fan-out cannot race the iteration.
func (b *Bus) snapshot(topic string) []plugin.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]plugin.EventHandler, 0, len(b.subs[topic])+len(b.subs[topicWildcard]))
	for _, h := range b.subs[topic] {
		out = append(out, h)
	}
	if topic != topicWildcard {
		for _, h := range b.subs[topicWildcard] {
			out = append(out, h)
		}
	}
	return out
}

func (b *Bus) deliver(ctx context.Context, handler plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}
