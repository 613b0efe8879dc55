// Package events carries domain events from the session engine to whatever
// delivers them to clients. Business code only sees Publisher.
package events

import "time"

// Event types pushed to clients
const (
	TypeNewOrder        = "new-order-received"
	TypeOrderStatus     = "order-status-updated"
	TypeOrderPatch      = "order-patch"
	TypeTableStatus     = "table-status-changed"
	TypeSessionTotals   = "session-totals-updated"
	TypeSessionStatus   = "session-status-changed"
	TypeWaiterRequested = "waiter-requested"
)

// Scope routes an event to the connections of one restaurant, optionally
// narrowed to a single table.
type Scope struct {
	RestaurantID uint
	TableID      uint // 0 means restaurant-wide
}

// RestaurantScope addresses every connection of a restaurant.
func RestaurantScope(restaurantID uint) Scope {
	return Scope{RestaurantID: restaurantID}
}

// TableScope addresses staff of the restaurant and diners at one table.
func TableScope(restaurantID, tableID uint) Scope {
	return Scope{RestaurantID: restaurantID, TableID: tableID}
}

// IsTable reports whether the scope is narrowed to a table.
func (s Scope) IsTable() bool {
	return s.TableID != 0
}

type Event struct {
	Type       string
	Scope      Scope
	Payload    interface{}
	OccurredAt time.Time
}

// New stamps an event with the current time.
func New(eventType string, scope Scope, payload interface{}) Event {
	return Event{
		Type:       eventType,
		Scope:      scope,
		Payload:    payload,
		OccurredAt: time.Now(),
	}
}

// Publisher accepts events. Implementations must not block the caller on
// delivery.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Nop discards every event.
var Nop Publisher = PublisherFunc(func(Event) {})
