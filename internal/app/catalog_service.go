package app

import (
	"context"
	"strings"
	"time"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/clock"
	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// CatalogService handles the organizer-facing event catalog. It has no
// concurrency machinery of its own; admission happens in PurchaseService.
type CatalogService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewCatalogService(repo EventRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{repo: repo, clock: clk}
}

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    *time.Time
	// Capacity is nil for events without an attendance limit.
	Capacity *int
}

func (s *CatalogService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Event{}, domain.ErrEventTitleRequired
	}
	if in.Capacity != nil && *in.Capacity <= 0 {
		return domain.Event{}, domain.ErrInvalidCapacity
	}

	now := s.clock.Now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = in.StartsAt.UTC()
	}

	event := domain.Event{
		ID:          newEventID(),
		Title:       title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    startsAt,
		Capacity:    in.Capacity,
		Active:      true,
		CreatedAt:   now,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *CatalogService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetEvent(ctx, eventID)
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}
