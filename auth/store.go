// Package auth implements session-based access gating for the dashboard: an
// in-memory session registry with lazy TTL expiry and a credential gate over
// the static user directory.
package auth

import (
	"context"
	"errors"
	"time"
)

// SessionTTL is how long an issued session stays valid.
const SessionTTL = 24 * time.Hour

// Session is one authenticated session. Records are replaced, never mutated.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for session store operations.
var (
	ErrTokenGeneration = errors.New("failed to generate session token")
)

// SessionStore is the registry of active sessions, keyed by opaque token.
//
// A session is valid iff it is present and unexpired. Validate deletes an
// expired record as a side effect, so expired sessions never linger past the
// call that discovers them. Restarting the process clears all sessions.
type SessionStore interface {
	// Create issues a new session token for a user.
	Create(ctx context.Context, userID, name, role string, ttl time.Duration) (string, error)

	// Validate returns the session for a token. An empty, unknown, or
	// expired token yields ok=false; expired records are deleted first.
	Validate(ctx context.Context, token string) (Session, bool, error)

	// Revoke deletes a session. Revoking an unknown token is a no-op.
	Revoke(ctx context.Context, token string) error
}
