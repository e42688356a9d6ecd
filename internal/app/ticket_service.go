package app

import (
	"context"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

type TicketRepository interface {
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
}

// TicketService serves read-only ticket lookups for authenticated callers.
type TicketService struct {
	repo TicketRepository
}

func NewTicketService(repo TicketRepository) *TicketService {
	return &TicketService{repo: repo}
}

// ListForUser returns the caller's tickets, newest first.
func (s *TicketService) ListForUser(ctx context.Context, ident domain.Identity) ([]domain.Ticket, error) {
	if ident.UserID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTicketsByUser(ctx, ident.UserID)
}

// Get returns a single ticket. Attendees may only see their own tickets;
// organizers may see any.
func (s *TicketService) Get(ctx context.Context, ident domain.Identity, ticketID string) (domain.Ticket, error) {
	if ticketID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.UserID != ident.UserID && ident.Role != domain.RoleOrganizer {
		return domain.Ticket{}, domain.ErrForbidden
	}
	return ticket, nil
}
