// Package auth is the identity collaborator boundary. Token issuance and
// revocation live elsewhere; this package only turns a presented credential
// into a domain.Identity.
package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/Moringa-SDF-PT10/group-6-event-management-app/internal/domain"
)

// Authenticator resolves a bearer token to an identity. Implementations must
// reject revoked or unknown credentials with domain.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// StaticTokens is a token -> identity map for development and tests.
type StaticTokens struct {
	mu     sync.RWMutex
	tokens map[string]domain.Identity
}

func NewStaticTokens(tokens map[string]domain.Identity) *StaticTokens {
	copied := make(map[string]domain.Identity, len(tokens))
	for token, ident := range tokens {
		copied[token] = ident
	}
	return &StaticTokens{tokens: copied}
}

func (s *StaticTokens) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.tokens[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return ident, nil
}

// Revoke removes a token so later requests carrying it are rejected.
func (s *StaticTokens) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// ParseStatic parses "token:userID:role" triples separated by commas, the
// format used by the AUTH_TOKENS environment variable.
func ParseStatic(spec string) map[string]domain.Identity {
	tokens := make(map[string]domain.Identity)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			continue
		}
		role := domain.Role(parts[2])
		if role != domain.RoleAttendee && role != domain.RoleOrganizer {
			continue
		}
		tokens[parts[0]] = domain.Identity{UserID: parts[1], Role: role}
	}
	return tokens
}
