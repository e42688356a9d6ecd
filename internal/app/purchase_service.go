package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/clock"
	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

// PurchaseRepository is the durable state touched by one purchase attempt.
// GetEventForUpdate, HasActiveTicket, SumActiveQuantity and InsertTicket must
// all run inside the transaction opened by WithTx so the capacity read and the
// ticket write share one isolation boundary.
type PurchaseRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	HasActiveTicket(ctx context.Context, userID, eventID string) (bool, error)
	SumActiveQuantity(ctx context.Context, eventID string) (int, error)
	InsertTicket(ctx context.Context, ticket domain.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	// GetActiveTicket runs outside the transaction; the engine uses it to
	// recover the outcome of a crashed attempt whose claim it took over.
	GetActiveTicket(ctx context.Context, userID, eventID string) (domain.Ticket, error)
}

// IdempotencyStore is the claim table that serializes retries of one logical
// purchase attempt.
type IdempotencyStore interface {
	// Claim records rec as pending if the key is unseen, or takes over a
	// pending claim whose ClaimedAt is older than staleBefore. It returns a
	// nil record when the caller now holds the claim exclusively, otherwise
	// the existing record. tookOver distinguishes a claim inherited from a
	// stalled attempt from a fresh one.
	Claim(ctx context.Context, rec domain.IdempotencyRecord, staleBefore time.Time) (existing *domain.IdempotencyRecord, tookOver bool, err error)
	// Finish transitions the pending claim to the terminal record rec.
	Finish(ctx context.Context, rec domain.IdempotencyRecord) error
	// Release drops a still-pending claim so the key is immediately free
	// again. Only safe when no ticket was committed under the claim.
	Release(ctx context.Context, key string) error
}

// PurchaseService is the admission decision engine: it accepts or rejects a
// quantity-based purchase against an event's capacity without ever letting the
// sum of active tickets exceed it.
type PurchaseService struct {
	repo        PurchaseRepository
	idem        IdempotencyStore
	clock       clock.Clock
	claimTTL    time.Duration
	maxAttempts int
}

const (
	defaultClaimTTL    = 30 * time.Second
	defaultMaxAttempts = 3
)

func NewPurchaseService(repo PurchaseRepository, idem IdempotencyStore, clk clock.Clock, opts ...PurchaseServiceOption) *PurchaseService {
	svc := &PurchaseService{
		repo:        repo,
		idem:        idem,
		clock:       clk,
		claimTTL:    defaultClaimTTL,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PurchaseServiceOption func(*PurchaseService)

// WithClaimTTL overrides how long a pending idempotency claim is honored
// before a retry may take it over.
func WithClaimTTL(d time.Duration) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if d > 0 {
			s.claimTTL = d
		}
	}
}

// WithMaxAttempts overrides the retry budget for store-level conflicts.
func WithMaxAttempts(n int) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

type PurchaseInput struct {
	UserID   string
	EventID  string
	Quantity int
	// IdempotencyKey is optional; when empty the key is derived from
	// (UserID, EventID), which limits the caller to one logical purchase
	// attempt per event.
	IdempotencyKey string
}

type PurchaseResult struct {
	Ticket domain.Ticket
	// Replayed is true when the outcome was served from a prior attempt with
	// the same idempotency key instead of a fresh admission decision.
	Replayed bool
}

// DeriveIdempotencyKey is the default key for callers that do not supply one.
func DeriveIdempotencyKey(userID, eventID string) string {
	return fmt.Sprintf("user:%s:event:%s", userID, eventID)
}

// Purchase runs one admission decision: claim the idempotency key, then check
// capacity and the duplicate-reservation guard and insert the ticket inside a
// single transaction. Admission rejections are recorded against the key;
// validation and transient failures are not, so retrying with the same key is
// always safe.
func (s *PurchaseService) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.Quantity < 1 {
		return PurchaseResult{}, domain.ErrInvalidQuantity
	}
	if in.UserID == "" || in.EventID == "" {
		return PurchaseResult{}, domain.ErrInvalidID
	}

	key := in.IdempotencyKey
	if key == "" {
		key = DeriveIdempotencyKey(in.UserID, in.EventID)
	}

	now := s.clock.Now()
	existing, tookOver, err := s.idem.Claim(ctx, domain.IdempotencyRecord{
		Key:       key,
		UserID:    in.UserID,
		EventID:   in.EventID,
		Quantity:  in.Quantity,
		Status:    domain.IdempotencyStatusPending,
		ClaimedAt: now,
		CreatedAt: now,
	}, now.Add(-s.claimTTL))
	if err != nil {
		return PurchaseResult{}, s.transient("claim idempotency key", err)
	}
	if existing != nil {
		if !existing.Terminal() {
			return PurchaseResult{}, domain.ErrPurchaseInProgress
		}
		if existing.UserID != in.UserID || existing.EventID != in.EventID || existing.Quantity != in.Quantity {
			return PurchaseResult{}, domain.ErrIdempotencyConflict
		}
		return s.replay(ctx, *existing)
	}

	if tookOver {
		result, done, err := s.resume(ctx, key, in)
		if err != nil {
			// Keep the claim pending: a committed ticket may exist, and the
			// next takeover after the TTL will look for it again.
			return PurchaseResult{}, err
		}
		if done {
			return result, nil
		}
	}

	result, err := s.admit(ctx, key, in, now)
	if err != nil {
		// The claim is still pending and no ticket exists; free the key so
		// the caller can retry without waiting out the claim TTL.
		_ = s.idem.Release(ctx, key)
		return PurchaseResult{}, err
	}
	return result, nil
}

// admit runs the check-then-insert transaction with a bounded retry budget for
// store-level conflicts and records the terminal outcome under key.
func (s *PurchaseService) admit(ctx context.Context, key string, in PurchaseInput, now time.Time) (PurchaseResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		ticket, admitErr := s.attempt(ctx, in, now)
		switch {
		case admitErr == nil:
			if err := s.idem.Finish(ctx, domain.IdempotencyRecord{
				Key:      key,
				Status:   domain.IdempotencyStatusCommitted,
				TicketID: ticket.ID,
			}); err != nil {
				// Ticket is committed; surface it even if the bookkeeping
				// write failed. The stale claim is reaped by the TTL.
				return PurchaseResult{Ticket: ticket}, nil
			}
			return PurchaseResult{Ticket: ticket}, nil

		case isValidationFailure(admitErr):
			// Validation outcomes are surfaced immediately and never recorded
			// against the key: a purchase refused because the event does not
			// exist yet, or is deactivated, must succeed once it does.
			return PurchaseResult{}, admitErr

		case isAdmissionRejection(admitErr):
			rec := rejectionRecord(key, admitErr)
			if err := s.idem.Finish(ctx, rec); err != nil {
				return PurchaseResult{}, s.transient("record rejection", err)
			}
			return PurchaseResult{}, admitErr

		case errors.Is(admitErr, domain.ErrTransient):
			lastErr = admitErr
			continue

		default:
			return PurchaseResult{}, s.transient("purchase attempt", admitErr)
		}
	}
	return PurchaseResult{}, fmt.Errorf("%w: retry budget exhausted: %v", domain.ErrTransient, lastErr)
}

// attempt is one atomic admission check: lock the event row, verify the
// duplicate guard, compare committed demand against capacity, insert.
func (s *PurchaseService) attempt(ctx context.Context, in PurchaseInput, now time.Time) (domain.Ticket, error) {
	var ticket domain.Ticket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return domain.ErrEventInactive
		}

		dup, err := s.repo.HasActiveTicket(txCtx, in.UserID, in.EventID)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateReservation
		}

		if !event.Unlimited() {
			committed, err := s.repo.SumActiveQuantity(txCtx, in.EventID)
			if err != nil {
				return err
			}
			if committed+in.Quantity > *event.Capacity {
				return &domain.InsufficientCapacityError{Remaining: *event.Capacity - committed}
			}
		}

		ticket = domain.Ticket{
			ID:          newTicketID(),
			EventID:     in.EventID,
			UserID:      in.UserID,
			Quantity:    in.Quantity,
			Status:      domain.TicketStatusActive,
			PurchasedAt: now,
		}
		return s.repo.InsertTicket(txCtx, ticket)
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// resume handles a claim taken over from a stalled attempt. If that attempt
// already committed a ticket but died before recording it, the ticket is the
// outcome of this key; re-running admission would only trip the duplicate
// guard against our own reservation. done reports whether the outcome was
// recovered; when false the caller runs a fresh admission decision.
func (s *PurchaseService) resume(ctx context.Context, key string, in PurchaseInput) (PurchaseResult, bool, error) {
	ticket, err := s.repo.GetActiveTicket(ctx, in.UserID, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return PurchaseResult{}, false, nil
		}
		return PurchaseResult{}, false, s.transient("inspect resumed claim", err)
	}

	// Best effort; if the record write fails the TTL frees the claim again
	// and the next retry lands back here.
	_ = s.idem.Finish(ctx, domain.IdempotencyRecord{
		Key:      key,
		Status:   domain.IdempotencyStatusCommitted,
		TicketID: ticket.ID,
	})
	return PurchaseResult{Ticket: ticket, Replayed: true}, true, nil
}

// replay reproduces the terminal outcome stored under an idempotency key
// without re-running admission.
func (s *PurchaseService) replay(ctx context.Context, rec domain.IdempotencyRecord) (PurchaseResult, error) {
	if rec.Status == domain.IdempotencyStatusRejected {
		return PurchaseResult{}, rejectionError(rec)
	}
	ticket, err := s.repo.GetTicket(ctx, rec.TicketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return PurchaseResult{}, fmt.Errorf("committed ticket %s missing for idempotency key %s", rec.TicketID, rec.Key)
		}
		return PurchaseResult{}, s.transient("load replayed ticket", err)
	}
	return PurchaseResult{Ticket: ticket, Replayed: true}, nil
}

func (s *PurchaseService) transient(op string, err error) error {
	if errors.Is(err, domain.ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrTransient, op, err)
}

// isAdmissionRejection matches the admission outcomes that are terminal for
// an idempotency key. Validation failures are deliberately excluded.
func isAdmissionRejection(err error) bool {
	return errors.Is(err, domain.ErrDuplicateReservation) ||
		errors.Is(err, domain.ErrInsufficientCapacity)
}

// isValidationFailure matches outcomes caused by the event's current state
// rather than by the admission decision itself.
func isValidationFailure(err error) bool {
	return errors.Is(err, domain.ErrEventNotFound) ||
		errors.Is(err, domain.ErrEventInactive)
}

func rejectionRecord(key string, err error) domain.IdempotencyRecord {
	rec := domain.IdempotencyRecord{
		Key:    key,
		Status: domain.IdempotencyStatusRejected,
	}
	var capErr *domain.InsufficientCapacityError
	if errors.As(err, &capErr) {
		rec.RejectionReason = domain.RejectionInsufficientCapacity
		rec.RejectionRemaining = capErr.Remaining
		return rec
	}
	rec.RejectionReason = domain.RejectionDuplicateReservation
	return rec
}

func rejectionError(rec domain.IdempotencyRecord) error {
	if rec.RejectionReason == domain.RejectionInsufficientCapacity {
		return &domain.InsufficientCapacityError{Remaining: rec.RejectionRemaining}
	}
	return domain.ErrDuplicateReservation
}
