package postgres

import (
	"context"
	"fmt"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketRepository is the reservation store and capacity ledger in one: ticket
// rows are the single source of truth for committed demand.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := withTx(ctx, r.pool, fn)
	if err != nil && isRetryableConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}

// GetEventForUpdate locks the event row for the remainder of the transaction.
// Concurrent purchase attempts for the same event queue here, which is what
// keeps the capacity read and the ticket insert race-free.
func (r *TicketRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	// Malformed ids would otherwise fail while encoding the uuid parameter
	// and surface as a retryable storage error instead of a lookup miss.
	if uuid.Validate(eventID) != nil {
		return domain.Event{}, domain.ErrEventNotFound
	}

	const query = `
SELECT id, title, description, location, starts_at, capacity, is_active, created_at
FROM events
WHERE id = $1
FOR UPDATE`

	var e domain.Event
	err := r.queryRow(ctx, query, eventID).
		Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.Capacity, &e.Active, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("lock event: %w", err)
	}
	return e, nil
}

func (r *TicketRepository) HasActiveTicket(ctx context.Context, userID, eventID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM tickets
	WHERE user_id = $1 AND event_id = $2 AND status = 'active'
)`

	var exists bool
	if err := r.queryRow(ctx, query, userID, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active ticket: %w", err)
	}
	return exists, nil
}

// SumActiveQuantity is the capacity ledger read: committed demand is always
// this live aggregate, never a counter column.
func (r *TicketRepository) SumActiveQuantity(ctx context.Context, eventID string) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM tickets
WHERE event_id = $1 AND status = 'active'`

	var total int
	if err := r.queryRow(ctx, query, eventID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum active tickets: %w", err)
	}
	return total, nil
}

func (r *TicketRepository) InsertTicket(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, user_id, quantity, status, purchased_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		ticket.ID,
		ticket.EventID,
		ticket.UserID,
		ticket.Quantity,
		ticket.Status,
		ticket.PurchasedAt,
	)
	if err != nil {
		// The partial unique index on (user_id, event_id) backs the
		// one-active-ticket invariant even if a racing insert slipped past
		// the in-transaction check.
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReservation
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	if uuid.Validate(ticketID) != nil {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}

	const query = `
SELECT id, event_id, user_id, quantity, status, purchased_at
FROM tickets
WHERE id = $1`

	var t domain.Ticket
	err := r.queryRow(ctx, query, ticketID).
		Scan(&t.ID, &t.EventID, &t.UserID, &t.Quantity, &t.Status, &t.PurchasedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// GetActiveTicket returns the caller's active ticket for an event, if any.
// The purchase engine uses it to recover a ticket committed by a stalled
// attempt whose idempotency claim was taken over.
func (r *TicketRepository) GetActiveTicket(ctx context.Context, userID, eventID string) (domain.Ticket, error) {
	if uuid.Validate(eventID) != nil {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}

	const query = `
SELECT id, event_id, user_id, quantity, status, purchased_at
FROM tickets
WHERE user_id = $1 AND event_id = $2 AND status = 'active'`

	var t domain.Ticket
	err := r.queryRow(ctx, query, userID, eventID).
		Scan(&t.ID, &t.EventID, &t.UserID, &t.Quantity, &t.Status, &t.PurchasedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get active ticket: %w", err)
	}
	return t, nil
}

func (r *TicketRepository) ListTicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	const query = `
SELECT id, event_id, user_id, quantity, status, purchased_at
FROM tickets
WHERE user_id = $1
ORDER BY purchased_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.UserID, &t.Quantity, &t.Status, &t.PurchasedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tickets: %w", rows.Err())
	}
	return tickets, nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
