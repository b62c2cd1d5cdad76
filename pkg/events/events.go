package events

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventSessionCreated EventType = "session_created"
	EventSessionClosed  EventType = "session_closed"
	EventRunFinished    EventType = "run_finished"
	EventRunFailed      EventType = "run_failed"
)

type Event struct {
	Type      EventType
	Source    string
	Payload   map[string]any
	Timestamp time.Time
}

type Handler func(ctx context.Context, event Event) error

// EventBus fans events out to subscribers. Handlers run on their own
// goroutine and their errors are dropped.
type EventBus struct {
	handlers map[EventType][]Handler
	mu       sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers handler for every event type.
func (b *EventBus) SubscribeAll(handler Handler) {
	for _, t := range []EventType{EventSessionCreated, EventSessionClosed, EventRunFinished, EventRunFailed} {
		b.Subscribe(t, handler)
	}
}

func (b *EventBus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(handler Handler) {
			_ = handler(context.WithoutCancel(ctx), event)
		}(h)
	}
}
