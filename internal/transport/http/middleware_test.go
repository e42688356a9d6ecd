package http

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/auth"
	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	authn := auth.NewStaticTokens(map[string]domain.Identity{
		"tok-attendee": {UserID: "user-1", Role: domain.RoleAttendee},
	})

	var seen domain.Identity
	handler := Authenticate(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token passes identity through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
		req.Header.Set("Authorization", "Bearer tok-attendee")
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if seen.UserID != "user-1" || seen.Role != domain.RoleAttendee {
			t.Fatalf("unexpected identity: %+v", seen)
		}
	})

	t.Run("missing header rejects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unknown token rejects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
		req.Header.Set("Authorization", "Bearer nope")
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("revoked token rejects", func(t *testing.T) {
		revocable := auth.NewStaticTokens(map[string]domain.Identity{
			"tok": {UserID: "user-1", Role: domain.RoleAttendee},
		})
		h := Authenticate(revocable)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		revocable.Revoke("tok")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
		req.Header.Set("Authorization", "Bearer tok")
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 after revocation, got %d", rec.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	handler := RequireRole(domain.RoleOrganizer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("matching role passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/events", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), domain.Identity{UserID: "org-1", Role: domain.RoleOrganizer}))
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/events", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), domain.Identity{UserID: "user-1", Role: domain.RoleAttendee}))
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("no identity is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/events", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	line := buf.String()
	if !strings.Contains(line, "method=GET") || !strings.Contains(line, "path=/health") || !strings.Contains(line, "status=418") {
		t.Fatalf("unexpected log line: %q", line)
	}
}
