package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/testutil"
)

func TestIdempotencyRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewIdempotencyRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC()
	staleBefore := now.Add(-30 * time.Second)

	pending := func(key string, claimedAt time.Time) domain.IdempotencyRecord {
		return domain.IdempotencyRecord{
			Key: key, UserID: "user-1", EventID: "event-1", Quantity: 2,
			Status: domain.IdempotencyStatusPending, ClaimedAt: claimedAt, CreatedAt: claimedAt,
		}
	}

	t.Run("first claim proceeds, second sees pending", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		existing, tookOver, err := repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("first claim: %v", err)
		}
		if existing != nil || tookOver {
			t.Fatalf("expected fresh exclusive claim, got %+v tookOver=%v", existing, tookOver)
		}

		existing, _, err = repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("second claim: %v", err)
		}
		if existing == nil || existing.Terminal() {
			t.Fatalf("expected live pending record, got %+v", existing)
		}
	})

	t.Run("terminal record is replayed to later claims", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := repo.Finish(ctx, domain.IdempotencyRecord{
			Key:                "key-1",
			Status:             domain.IdempotencyStatusRejected,
			RejectionReason:    domain.RejectionInsufficientCapacity,
			RejectionRemaining: 3,
		}); err != nil {
			t.Fatalf("finish: %v", err)
		}

		existing, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("replay claim: %v", err)
		}
		if existing == nil || existing.Status != domain.IdempotencyStatusRejected {
			t.Fatalf("expected rejected record, got %+v", existing)
		}
		if existing.RejectionReason != domain.RejectionInsufficientCapacity || existing.RejectionRemaining != 3 {
			t.Fatalf("rejection payload lost: %+v", existing)
		}
		if existing.Quantity != 2 {
			t.Fatalf("expected original quantity retained, got %d", existing.Quantity)
		}
	})

	t.Run("committed record keeps its ticket id", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		eventID := testutil.InsertEvent(t, ctx, pool, "Gig", 10)
		ticketID := testutil.InsertTicket(t, ctx, pool, domain.Ticket{
			EventID: eventID, UserID: "user-1", Quantity: 2, Status: domain.TicketStatusActive,
		})

		if _, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := repo.Finish(ctx, domain.IdempotencyRecord{
			Key:      "key-1",
			Status:   domain.IdempotencyStatusCommitted,
			TicketID: ticketID,
		}); err != nil {
			t.Fatalf("finish: %v", err)
		}

		existing, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("replay claim: %v", err)
		}
		if existing == nil || existing.Status != domain.IdempotencyStatusCommitted || existing.TicketID != ticketID {
			t.Fatalf("expected committed record with ticket id, got %+v", existing)
		}
	})

	t.Run("stale pending claim can be taken over once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		stale := now.Add(-2 * time.Minute)
		if _, _, err := repo.Claim(ctx, pending("key-1", stale), stale.Add(-time.Second)); err != nil {
			t.Fatalf("seed claim: %v", err)
		}

		existing, tookOver, err := repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("takeover claim: %v", err)
		}
		if existing != nil || !tookOver {
			t.Fatalf("expected takeover to win, got %+v tookOver=%v", existing, tookOver)
		}

		// The refreshed claim is no longer stale for the next caller.
		existing, _, err = repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("post-takeover claim: %v", err)
		}
		if existing == nil {
			t.Fatalf("expected refreshed pending record to block")
		}
	})

	t.Run("Finish is first-writer-wins", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := repo.Finish(ctx, domain.IdempotencyRecord{
			Key: "key-1", Status: domain.IdempotencyStatusRejected,
			RejectionReason: domain.RejectionDuplicateReservation,
		}); err != nil {
			t.Fatalf("finish: %v", err)
		}

		err := repo.Finish(ctx, domain.IdempotencyRecord{
			Key: "key-1", Status: domain.IdempotencyStatusRejected,
			RejectionReason: domain.RejectionInsufficientCapacity,
		})
		if err != domain.ErrIdempotencyConflict {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
	})

	t.Run("Release frees only pending claims", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := repo.Release(ctx, "key-1"); err != nil {
			t.Fatalf("release: %v", err)
		}

		existing, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("re-claim: %v", err)
		}
		if existing != nil {
			t.Fatalf("expected released key to be claimable, got %+v", existing)
		}

		if err := repo.Finish(ctx, domain.IdempotencyRecord{
			Key: "key-1", Status: domain.IdempotencyStatusRejected,
			RejectionReason: domain.RejectionDuplicateReservation,
		}); err != nil {
			t.Fatalf("finish: %v", err)
		}
		if err := repo.Release(ctx, "key-1"); err != nil {
			t.Fatalf("release terminal: %v", err)
		}

		existing, _, err = repo.Claim(ctx, pending("key-1", now), staleBefore)
		if err != nil {
			t.Fatalf("claim after terminal release: %v", err)
		}
		if existing == nil || existing.Status != domain.IdempotencyStatusRejected {
			t.Fatalf("terminal record must survive Release, got %+v", existing)
		}
	})

	t.Run("exactly one concurrent claimant proceeds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		const claimants = 8
		var wg sync.WaitGroup
		wins := make([]bool, claimants)
		for i := 0; i < claimants; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				existing, _, err := repo.Claim(ctx, pending("key-1", now), staleBefore)
				if err != nil {
					t.Errorf("claimant %d: %v", i, err)
					return
				}
				wins[i] = existing == nil
			}(i)
		}
		wg.Wait()

		won := 0
		for _, w := range wins {
			if w {
				won++
			}
		}
		if won != 1 {
			t.Fatalf("expected exactly one exclusive claim, got %d", won)
		}
	})
}
