package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 2)
	bus.Subscribe(EventRunFailed, func(_ context.Context, e Event) error {
		got <- e
		return nil
	})
	bus.SubscribeAll(func(_ context.Context, e Event) error {
		got <- e
		return nil
	})

	bus.Publish(context.Background(), Event{Type: EventRunFailed, Source: "s1"})
	for i := 0; i < 2; i++ {
		select {
		case e := <-got:
			if e.Source != "s1" || e.Timestamp.IsZero() {
				t.Fatalf("unexpected event %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatalf("handler %d not called", i)
		}
	}

	bus.Publish(context.Background(), Event{Type: "unknown"})
	select {
	case e := <-got:
		t.Fatalf("unexpected delivery %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNilBusIgnoresPublish(t *testing.T) {
	var bus *EventBus
	bus.Publish(context.Background(), Event{Type: EventSessionCreated})
}
