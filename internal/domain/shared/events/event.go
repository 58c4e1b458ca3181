package events

import (
	"time"
)

// DomainEvent is the contract every aggregate event satisfies. Events
// signal committed state changes; the dispatcher fans them out to
// subscribers such as the routing cache invalidator.
type DomainEvent interface {
	// GetAggregateID returns the ID of the aggregate that emitted the event.
	GetAggregateID() string

	// GetEventType returns the event's type name.
	GetEventType() string

	// GetOccurredAt returns when the event occurred.
	GetOccurredAt() time.Time

	// GetVersion returns the event schema version.
	GetVersion() int
}

// BaseEvent carries the fields shared by all domain events; concrete
// events embed it.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string   { return e.AggregateID }
func (e BaseEvent) GetEventType() string     { return e.EventType }
func (e BaseEvent) GetOccurredAt() time.Time { return e.OccurredAt }
func (e BaseEvent) GetVersion() int          { return e.Version }

// EventHandler consumes dispatched events.
type EventHandler interface {
	Handle(event DomainEvent) error
	CanHandle(eventType string) bool
}

// EventPublisher is the side use cases see: fire events after a
// successful mutation.
type EventPublisher interface {
	Publish(event DomainEvent) error
	PublishAll(events []DomainEvent) error
}

// EventSubscriber registers handlers per event type.
type EventSubscriber interface {
	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventDispatcher is the full dispatcher: publish, subscribe, and
// lifecycle control.
type EventDispatcher interface {
	EventPublisher
	EventSubscriber

	Start() error
	Stop() error
}
