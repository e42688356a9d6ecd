package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidID            = "invalid_id"
	codeEventTitleRequired   = "event_title_required"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidCapacity      = "invalid_capacity"
	codeEventNotFound        = "event_not_found"
	codeEventInactive        = "event_inactive"
	codeTicketNotFound       = "ticket_not_found"
	codeDuplicateReservation = "duplicate_reservation"
	codeInsufficientCapacity = "insufficient_capacity"
	codeIdempotencyConflict  = "idempotency_conflict"
	codePurchaseInProgress   = "purchase_in_progress"
	codeRetryLater           = "retry_later"
	codeUnauthenticated      = "unauthenticated"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Remaining is only set for insufficient_capacity rejections.
	Remaining *int `json:"remaining,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

const transientRetryAfterSeconds = 1

// writeDomainError maps the core's rejection taxonomy onto HTTP statuses.
// Retryable outcomes carry a Retry-After hint so clients resubmit with the
// same idempotency key instead of inventing a new one.
func writeDomainError(w http.ResponseWriter, err error) {
	var capErr *domain.InsufficientCapacityError
	switch {
	case errors.As(err, &capErr):
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     capErr.Error(),
			Code:      codeInsufficientCapacity,
			Remaining: &capErr.Remaining,
		})
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEventTitleRequired):
		writeError(w, http.StatusBadRequest, codeEventTitleRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrEventInactive):
		writeError(w, http.StatusConflict, codeEventInactive, err.Error())
	case errors.Is(err, domain.ErrDuplicateReservation):
		writeError(w, http.StatusConflict, codeDuplicateReservation, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrPurchaseInProgress):
		w.Header().Set("Retry-After", strconv.Itoa(transientRetryAfterSeconds))
		writeError(w, http.StatusConflict, codePurchaseInProgress, err.Error())
	case errors.Is(err, domain.ErrTransient):
		w.Header().Set("Retry-After", strconv.Itoa(transientRetryAfterSeconds))
		writeError(w, http.StatusServiceUnavailable, codeRetryLater, "temporary failure, retry with the same idempotency key")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
