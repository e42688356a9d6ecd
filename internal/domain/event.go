package domain

import "time"

// Event represents a ticketed event. Capacity is nil for events without an
// attendance limit; CommittedQuantity is derived from active tickets and is
// never stored on the event itself.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	Capacity    *int
	Active      bool
	CreatedAt   time.Time
}

// Unlimited reports whether the event has no capacity limit.
func (e Event) Unlimited() bool {
	return e.Capacity == nil
}
