// Package events carries domain events between modules inside one
// process. The contracts here are infrastructure only; event payloads
// live with the modules that publish them.
package events

import (
	"context"
	"time"
)

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish hands the event to every handler subscribed to its name.
	// Delivery is asynchronous; the publisher never sees handler errors.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event inline and returns the joined
	// handler errors, if any. Used where the caller must observe the
	// outcome, such as tests and transactional flows.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name as returned by
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type, e.g. "quotes.paid".
	EventName() string
	OccurredAt() time.Time
}

// Handler consumes events.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// BaseEvent is embedded by concrete events to satisfy OccurredAt.
type BaseEvent struct {
	At time.Time `json:"occurredAt"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.At }

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{At: time.Now()}
}
