package domain

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusPending   IdempotencyStatus = "pending"
	IdempotencyStatusCommitted IdempotencyStatus = "committed"
	IdempotencyStatusRejected  IdempotencyStatus = "rejected"
)

// Rejection reason codes stored against an idempotency key so a replay can
// reproduce the original outcome without re-running admission. Only admission
// rejections are recorded; validation outcomes such as a missing or inactive
// event depend on state that can change and must never stick to a key.
const (
	RejectionDuplicateReservation = "duplicate_reservation"
	RejectionInsufficientCapacity = "insufficient_capacity"
)

// IdempotencyRecord tracks one logical purchase attempt. It is created in
// pending state when a key is first claimed and transitions exactly once to a
// terminal status. Records are never deleted within the retry window.
type IdempotencyRecord struct {
	Key             string
	UserID          string
	EventID         string
	Quantity        int
	Status          IdempotencyStatus
	TicketID        string
	RejectionReason string
	// Remaining capacity captured with an insufficient_capacity rejection.
	RejectionRemaining int
	ClaimedAt          time.Time
	CreatedAt          time.Time
}

// Terminal reports whether the record has reached its final outcome.
func (r IdempotencyRecord) Terminal() bool {
	return r.Status == IdempotencyStatusCommitted || r.Status == IdempotencyStatusRejected
}
