package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oarkflow/script"
	"github.com/oarkflow/script/pkg/events"
)

func TestSessionKeepsState(t *testing.T) {
	m := NewManager()
	s, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()
	res, err := m.Execute(ctx, s.ID, `int total = 40; println("set");`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success() || res.Output != "set\n" {
		t.Fatalf("unexpected first result %+v", res)
	}
	res, err = m.Execute(ctx, s.ID, "total + 2")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Value != int32(42) || res.Result != "42" || res.SessionID != s.ID {
		t.Fatalf("unexpected second result %+v", res)
	}
	info := s.Info()
	if info.Runs != 2 || len(info.Variables) != 1 || info.Variables[0] != "total" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestSessionFailureIsReported(t *testing.T) {
	m := NewManager()
	s, err := m.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := m.Execute(context.Background(), s.ID, "int x = 1 / 0;")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Success() || res.Code != string(script.ErrCodeThrown) || !strings.Contains(res.Error, "/ by zero") {
		t.Fatalf("unexpected failure result %+v", res)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	a, _ := m.Create()
	b, _ := m.Create()
	if m.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Len())
	}
	list := m.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 infos, got %d", len(list))
	}
	if err := m.Close(a.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Close(a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := m.Execute(context.Background(), a.ID, "1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found on closed session, got %v", err)
	}
	if _, err := m.Get(b.ID); err != nil {
		t.Fatalf("other session must survive: %v", err)
	}
}

func TestSessionRunsAreSerialized(t *testing.T) {
	m := NewManager()
	s, _ := m.Create()
	ctx := context.Background()
	if _, err := m.Execute(ctx, s.ID, "int n = 0;"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := m.Execute(ctx, s.ID, "n++;"); err != nil || !res.Success() {
				t.Errorf("execute: %v %+v", err, res)
			}
		}()
	}
	wg.Wait()
	res, _ := m.Execute(ctx, s.ID, "n")
	if res.Value != int32(10) {
		t.Fatalf("expected 10 increments, got %v", res.Value)
	}
}

func TestHooksAndContextOptions(t *testing.T) {
	var seen []string
	m := NewManager(
		WithContextOptions(script.WithMaxLoops(3)),
		WithHook(func(_ context.Context, src string, res *Result) {
			seen = append(seen, src+"|"+res.Output)
		}),
	)
	s, _ := m.Create()
	res, err := m.Execute(context.Background(), s.ID, `while (true) print("x");`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Output != "xxx" || len(res.Warnings) != 1 {
		t.Fatalf("expected capped loop with warning, got %+v", res)
	}
	if len(seen) != 1 || seen[0] != `while (true) print("x");|xxx` {
		t.Fatalf("hook not called as expected: %v", seen)
	}
}

func TestRunOnceUsesFreshContext(t *testing.T) {
	res, err := RunOnce(context.Background(), `String s = "hi"; s.toUpperCase()`)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Result != "HI" || res.RunID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestManagerPublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	got := make(chan events.Event, 4)
	bus.SubscribeAll(func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})
	m := NewManager(WithEvents(bus))
	s, _ := m.Create()
	if _, err := m.Execute(context.Background(), s.ID, "Object o = null; o.toString();"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	seen := map[events.EventType]events.Event{}
	for len(seen) < 2 {
		select {
		case e := <-got:
			seen[e.Type] = e
		case <-time.After(time.Second):
			t.Fatalf("missing events, got %v", seen)
		}
	}
	failed, ok := seen[events.EventRunFailed]
	if !ok || failed.Source != s.ID || failed.Payload["code"] != string(script.ErrCodeNull) {
		t.Fatalf("unexpected failure event %+v", failed)
	}
	if _, ok := seen[events.EventSessionCreated]; !ok {
		t.Fatalf("expected created event, got %v", seen)
	}
}
