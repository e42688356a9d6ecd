package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/app"
	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// TicketPurchaser is the minimal interface needed to purchase tickets.
type TicketPurchaser interface {
	Purchase(ctx context.Context, in app.PurchaseInput) (app.PurchaseResult, error)
}

// HandlePurchase returns an HTTP handler for ticket purchases. Quantity
// defaults to 1 when the body omits it; the idempotency key comes from the
// Idempotency-Key header and is derived from (user, event) when absent.
func HandlePurchase(svc TicketPurchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
			return
		}

		var req purchaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.EventID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "event_id is required")
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		res, err := svc.Purchase(r.Context(), app.PurchaseInput{
			UserID:         ident.UserID,
			EventID:        req.EventID,
			Quantity:       quantity,
			IdempotencyKey: r.Header.Get(idempotencyHeader),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if res.Replayed {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(ticketResponseFrom(res.Ticket))
	}
}

type purchaseRequest struct {
	EventID  string `json:"event_id"`
	Quantity *int   `json:"quantity"`
}

type ticketResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchased_at"`
}

func ticketResponseFrom(t domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		UserID:      t.UserID,
		Quantity:    t.Quantity,
		Status:      string(t.Status),
		PurchasedAt: t.PurchasedAt,
	}
}
