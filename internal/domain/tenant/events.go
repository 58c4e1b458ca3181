package tenant

import (
	"stratum/internal/domain/shared/events"
	"stratum/internal/shared/biztime"
)

// Event type constants for the tenant aggregate.
const (
	EventTenantRegistered     = "tenant.registered"
	EventTenantUpdated        = "tenant.updated"
	EventTenantSuspended      = "tenant.suspended"
	EventTenantReactivated    = "tenant.reactivated"
	EventTenantDecommissioned = "tenant.decommissioned"
	EventMigrationStarted     = "tenant.migration_started"
	EventCutoverCompleted     = "tenant.cutover_completed"
	EventMigrationAborted     = "tenant.migration_aborted"
)

// RegisteredEvent is published when a new tenant is registered.
type RegisteredEvent struct {
	events.BaseEvent
	Slug string `json:"slug"`
	Tier string `json:"tier"`
}

// NewRegisteredEvent creates a tenant registered event.
func NewRegisteredEvent(t *Tenant) *RegisteredEvent {
	return &RegisteredEvent{
		BaseEvent: events.BaseEvent{
			AggregateID: t.SID(),
			EventType:   EventTenantRegistered,
			OccurredAt:  biztime.NowUTC(),
			Version:     1,
		},
		Slug: t.Slug(),
		Tier: t.Tier().String(),
	}
}

// PlacementChangedEvent is published for every transition that can
// change where (or whether) a tenant routes: updates, suspension,
// reactivation, decommission, migration start, cutover, and abort.
// Routing caches subscribe to it for invalidation.
type PlacementChangedEvent struct {
	events.BaseEvent
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// NewPlacementChangedEvent creates a placement change event of the given
// type for the tenant's current state.
func NewPlacementChangedEvent(eventType string, t *Tenant) *PlacementChangedEvent {
	return &PlacementChangedEvent{
		BaseEvent: events.BaseEvent{
			AggregateID: t.SID(),
			EventType:   eventType,
			OccurredAt:  biztime.NowUTC(),
			Version:     1,
		},
		Slug:   t.Slug(),
		Status: t.Status().String(),
	}
}
