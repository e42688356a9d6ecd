package domain

import "time"

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket represents one accepted reservation of quantity seats. A ticket is
// never mutated after creation apart from the active -> cancelled transition.
type Ticket struct {
	ID          string
	EventID     string
	UserID      string
	Quantity    int
	Status      TicketStatus
	PurchasedAt time.Time
}
