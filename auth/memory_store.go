package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory SessionStore. It is process-wide shared state:
// one instance is created at startup and passed to the gate and the HTTP
// server. There is no background sweep; expiry is checked on Validate.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore creates an empty session registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a session under a fresh random token.
func (s *MemoryStore) Create(ctx context.Context, userID, name, role string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := generateToken()
	if err != nil {
		return "", ErrTokenGeneration
	}

	now := s.now()
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Role:      role,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	return token, nil
}

// Validate looks up a token, deleting the record if it has expired.
func (s *MemoryStore) Validate(ctx context.Context, token string) (Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, false, err
	}
	if token == "" {
		return Session{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false, nil
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Revoke deletes a session. Unknown tokens are ignored.
func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// generateToken creates a cryptographically secure 256-bit random token.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
