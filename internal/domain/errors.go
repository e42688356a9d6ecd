package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrEventInactive        = errors.New("event is not active")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrDuplicateReservation = errors.New("active ticket already exists for this event")
	ErrIdempotencyConflict  = errors.New("idempotency key reused with different arguments")
	ErrPurchaseInProgress   = errors.New("purchase with this idempotency key is in progress")
	ErrTransient            = errors.New("transient failure, retry with the same idempotency key")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrEventTitleRequired   = errors.New("event title is required")
	ErrInvalidCapacity      = errors.New("capacity must be a positive integer")
	ErrInvalidID            = errors.New("invalid id")
	ErrUnauthenticated      = errors.New("missing or invalid credentials")
	ErrForbidden            = errors.New("role not permitted for this operation")
)

// InsufficientCapacityError reports how many units were still available when a
// purchase was rejected. It matches errors.Is(err, ErrInsufficientCapacity) so
// callers can branch on the sentinel without losing the remaining count.
type InsufficientCapacityError struct {
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: %d remaining", e.Remaining)
}

func (e *InsufficientCapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}
