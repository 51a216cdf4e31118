// Package ports defines the EventBus interface for event-driven communication.
package ports

import (
	"github.com/melodix-app/melodix/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
// It decouples event producers (services, stores) from consumers (playback
// glue, logging, UI layers built on top of this module).
//
// Thread-safety: Implementations must be thread-safe as events may be
// published and subscribed from multiple goroutines simultaneously.
type EventBus interface {
	// Publish delivers an event to all subscribers of its type. Handlers
	// should process events quickly or dispatch to a background goroutine.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type and
	// returns an id for later unsubscription. The same handler can be
	// registered multiple times, yielding multiple calls.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered handler. Unknown or already
	// removed ids are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives every event regardless of
	// type. Useful for logging and diagnostics.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether any subscription exists for the type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the bus and clears all subscriptions.
	Close() error
}
