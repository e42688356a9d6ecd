package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

// TicketReader is the minimal interface for ticket lookups.
type TicketReader interface {
	ListForUser(ctx context.Context, ident domain.Identity) ([]domain.Ticket, error)
	Get(ctx context.Context, ident domain.Identity, ticketID string) (domain.Ticket, error)
}

// HandleListTickets returns the caller's tickets, newest first.
func HandleListTickets(svc TicketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
			return
		}

		tickets, err := svc.ListForUser(r.Context(), ident)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]ticketResponse, 0, len(tickets))
		for _, t := range tickets {
			resp = append(resp, ticketResponseFrom(t))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleGetTicket returns one ticket, owner or organizer only.
func HandleGetTicket(svc TicketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
			return
		}

		ticket, err := svc.Get(r.Context(), ident, chi.URLParam(r, "ticketID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ticketResponseFrom(ticket))
	}
}
