package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository is the claim table for purchase attempts. Claim
// acquisition rides the primary key: whichever attempt's INSERT wins owns the
// key, everyone else reads back what they lost to.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) Claim(ctx context.Context, rec domain.IdempotencyRecord, staleBefore time.Time) (*domain.IdempotencyRecord, bool, error) {
	const insert = `
INSERT INTO idempotency_keys (key, user_id, event_id, quantity, status, claimed_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, insert,
		rec.Key, rec.UserID, rec.EventID, rec.Quantity, rec.Status, rec.ClaimedAt, rec.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, false, nil
	}

	existing, err := r.get(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Row vanished between the insert and the read; treat as contention.
		return nil, false, fmt.Errorf("%w: idempotency key disappeared during claim", domain.ErrTransient)
	}
	if existing.Terminal() {
		return existing, false, nil
	}

	// Pending claim: take it over only if it has gone stale, i.e. the attempt
	// that created it presumably died before finishing.
	if existing.ClaimedAt.After(staleBefore) {
		return existing, false, nil
	}

	const takeover = `
UPDATE idempotency_keys
SET claimed_at = $2
WHERE key = $1 AND status = 'pending' AND claimed_at <= $3`

	tag, err = r.pool.Exec(ctx, takeover, rec.Key, rec.ClaimedAt, staleBefore)
	if err != nil {
		return nil, false, fmt.Errorf("take over stale claim: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, true, nil
	}

	// Lost the takeover race; report whatever state the key is in now.
	existing, err = r.get(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("%w: idempotency key disappeared during takeover", domain.ErrTransient)
	}
	return existing, false, nil
}

func (r *IdempotencyRepository) Finish(ctx context.Context, rec domain.IdempotencyRecord) error {
	const stmt = `
UPDATE idempotency_keys
SET status = $2, ticket_id = NULLIF($3, '')::uuid, rejection_reason = NULLIF($4, ''), rejection_remaining = $5
WHERE key = $1 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, stmt,
		rec.Key, rec.Status, rec.TicketID, rec.RejectionReason, rec.RejectionRemaining,
	)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdempotencyConflict
	}
	return nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	const stmt = `DELETE FROM idempotency_keys WHERE key = $1 AND status = 'pending'`
	if _, err := r.pool.Exec(ctx, stmt, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	const query = `
SELECT key, user_id, event_id, quantity, status,
       COALESCE(ticket_id::text, ''), COALESCE(rejection_reason, ''), rejection_remaining,
       claimed_at, created_at
FROM idempotency_keys
WHERE key = $1`

	var rec domain.IdempotencyRecord
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&rec.Key, &rec.UserID, &rec.EventID, &rec.Quantity, &rec.Status,
		&rec.TicketID, &rec.RejectionReason, &rec.RejectionRemaining,
		&rec.ClaimedAt, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return &rec, nil
}
