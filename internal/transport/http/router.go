package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/auth"
	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

// RouterDeps carries everything NewRouter wires together.
type RouterDeps struct {
	Purchases     TicketPurchaser
	Tickets       TicketReader
	Catalog       EventCatalog
	Authenticator auth.Authenticator
}

// NewRouter assembles the API surface. Purchases require the attendee role,
// event creation the organizer role; catalog reads are public.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", HealthHandler)

	r.Get("/events", HandleListEvents(deps.Catalog))
	r.Get("/events/{eventID}", HandleGetEvent(deps.Catalog))

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(deps.Authenticator))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAttendee))
			r.Post("/tickets", HandlePurchase(deps.Purchases))
		})

		r.Get("/tickets", HandleListTickets(deps.Tickets))
		r.Get("/tickets/{ticketID}", HandleGetTicket(deps.Tickets))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleOrganizer))
			r.Post("/admin/events", HandleCreateEvent(deps.Catalog))
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})

	return r
}
