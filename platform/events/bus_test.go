package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestSubscribeRoutesByEventName(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var got []string
	bus.Subscribe("a", HandlerFunc(func(_ context.Context, _ Event) error {
		got = append(got, "a")
		return nil
	}))
	bus.Subscribe("b", HandlerFunc(func(_ context.Context, _ Event) error {
		got = append(got, "b")
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "a"}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected only the 'a' handler to run, got %v", got)
	}
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	bus.Subscribe("e", HandlerFunc(func(_ context.Context, _ Event) error { return errA }))
	bus.Subscribe("e", HandlerFunc(func(_ context.Context, _ Event) error { return errB }))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "e"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both handler errors joined, got %v", err)
	}
}

func TestPublishDeliversAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(nil)
	done := make(chan Event, 1)

	bus.Subscribe("e", HandlerFunc(func(_ context.Context, event Event) error {
		done <- event
		return nil
	}))

	published := testEvent{NewBaseEvent(), "e"}
	bus.Publish(context.Background(), published)

	select {
	case got := <-done:
		if got.OccurredAt() != published.OccurredAt() {
			t.Fatal("handler received a different event")
		}
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}
