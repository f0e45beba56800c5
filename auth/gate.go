package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User is one entry in the static user directory.
type User struct {
	Name   string
	Secret string
	Role   string
}

// Directory maps user IDs to their directory entries. It is read-only after
// startup; users are never created or destroyed at runtime.
type Directory map[string]User

// Result is the outcome of an authentication attempt. Failed attempts carry
// no detail: an unknown user, a bad password, and a missing directory all
// produce the same zero-valued shape.
type Result struct {
	OK     bool   `json:"ok"`
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Gate validates credentials against the directory and manages session
// lifecycle through the store.
type Gate struct {
	dir   Directory
	store SessionStore
}

// NewGate creates a Gate over a directory and session store.
func NewGate(dir Directory, store SessionStore) *Gate {
	return &Gate{dir: dir, store: store}
}

// Authenticate checks a credential pair and issues a session on success.
// Every successful call creates exactly one new session; existing sessions
// for the same user are left alone. The error return is reserved for store
// failures; credential problems only ever show up as Result.OK == false.
func (g *Gate) Authenticate(ctx context.Context, userID, password string) (Result, error) {
	if len(g.dir) == 0 {
		return Result{}, nil
	}

	user, ok := g.dir[userID]
	if !ok {
		return Result{}, nil
	}
	if !secretMatches(user.Secret, password) {
		return Result{}, nil
	}

	token, err := g.store.Create(ctx, userID, user.Name, user.Role, SessionTTL)
	if err != nil {
		return Result{}, err
	}

	return Result{
		OK:     true,
		Token:  token,
		UserID: userID,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

// Logout revokes a session. Unknown tokens are a no-op.
func (g *Gate) Logout(ctx context.Context, token string) error {
	return g.store.Revoke(ctx, token)
}

// ValidateSession resolves a token to its session, if still valid.
func (g *Gate) ValidateSession(ctx context.Context, token string) (Session, bool, error) {
	return g.store.Validate(ctx, token)
}

// secretMatches compares a password against the configured secret. Secrets
// stored as bcrypt hashes (the `icarus hash-password` output) are verified with
// bcrypt; anything else is compared directly in constant time.
func secretMatches(secret, password string) bool {
	if strings.HasPrefix(secret, "$2a$") || strings.HasPrefix(secret, "$2b$") || strings.HasPrefix(secret, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}
