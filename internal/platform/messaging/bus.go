package messaging

import (
	"context"
	"log/slog"
	"sync"
)

// Event is one published message on the in-process bus. The outbox relay
// publishes the serialized decision envelope as the payload.
type Event struct {
	EventType string
	Payload   []byte
}

// Bus is the event transport used by the worker outbox relay. The current
// implementation is in-process publish/subscribe while runtime wiring is
// finalized for external brokers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Event),
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, eventType string, payload []byte) error {
	b.mu.RLock()
	subs := append([]chan Event(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	event := Event{EventType: eventType, Payload: payload}
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow subscriber",
					"event", "bus_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"event_type", eventType,
				)
			}
		}
	}

	if b.logger != nil {
		b.logger.Info("event published",
			"event", "bus_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"event_type", eventType,
		)
	}
	return nil
}

func (b *Bus) Subscribe(
	ctx context.Context,
	eventType string,
	handler func(context.Context, Event) error,
) error {
	ch := make(chan Event, 128)

	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(eventType, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil && b.logger != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) removeSubscriber(eventType string, target chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[eventType]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan Event, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[eventType] = filtered
}
