// Package events moves in-process notifications between engine modules, such
// as a lead being captured, assigned, re-statused or merged. Delivery is best
// effort: nothing is persisted and a failed handler is not retried.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every message on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// TenantEvent is an event owned by one tenant. Handler failures for it are
// logged with the tenant id.
type TenantEvent interface {
	Event
	EventTenantID() uuid.UUID
}

// BaseEvent stamps when an event happened.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the current time.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// NewBaseEventAt stamps t. Services that read time from an injected clock use
// it so event times agree with the rows they wrote.
func NewBaseEventAt(t time.Time) BaseEvent {
	return BaseEvent{Timestamp: t.UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus connects publishers and subscribers inside one process.
type Bus interface {
	// Publish hands the event to every subscriber in the background and
	// returns at once. Handler errors are logged, never returned.
	Publish(ctx context.Context, event Event)

	// PublishSync runs subscribers in registration order and joins their errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers handler for events whose EventName is eventName.
	Subscribe(eventName string, handler Handler)
}

// Subscriber is a module that reacts to events.
type Subscriber interface {
	RegisterHandlers(bus Bus)
}

// SubscribeAll lets each subscriber register its handlers on bus.
func SubscribeAll(bus Bus, subscribers ...Subscriber) {
	for _, s := range subscribers {
		s.RegisterHandlers(bus)
	}
}
