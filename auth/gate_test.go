package auth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func testDirectory() Directory {
	return Directory{
		"admin":  {Name: "Admin", Secret: "admin123", Role: "admin"},
		"viewer": {Name: "Viewer", Secret: "viewer123", Role: "viewer"},
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gate := NewGate(testDirectory(), store)

	res, err := gate.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !res.OK {
		t.Fatal("Authenticate: expected OK")
	}
	if res.Token == "" {
		t.Fatal("Authenticate: no token issued")
	}
	if res.Name != "Admin" || res.Role != "admin" || res.UserID != "admin" {
		t.Fatalf("Authenticate: got %+v", res)
	}

	sess, ok, err := gate.ValidateSession(ctx, res.Token)
	if err != nil || !ok {
		t.Fatalf("ValidateSession: ok=%v err=%v", ok, err)
	}
	if sess.UserID != "admin" {
		t.Fatalf("session user = %q, want admin", sess.UserID)
	}
	if remaining := time.Until(sess.ExpiresAt); remaining > 24*time.Hour || remaining < 23*time.Hour {
		t.Fatalf("session TTL = %v, want about 24h", remaining)
	}
}

func TestAuthenticateFailureShapesIdentical(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(testDirectory(), NewMemoryStore())

	wrongPassword, err := gate.Authenticate(ctx, "admin", "nope")
	if err != nil {
		t.Fatalf("Authenticate(wrong password): %v", err)
	}
	unknownUser, err := gate.Authenticate(ctx, "ghost", "admin123")
	if err != nil {
		t.Fatalf("Authenticate(unknown user): %v", err)
	}

	// Wrong password and unknown user are indistinguishable.
	if wrongPassword != unknownUser {
		t.Fatalf("failure shapes differ: %+v vs %+v", wrongPassword, unknownUser)
	}
	if wrongPassword.OK || wrongPassword.Token != "" || wrongPassword.Role != "" {
		t.Fatalf("failure result leaks detail: %+v", wrongPassword)
	}
}

func TestAuthenticateDirectoryUnavailable(t *testing.T) {
	ctx := context.Background()

	for _, dir := range []Directory{nil, {}} {
		gate := NewGate(dir, NewMemoryStore())
		res, err := gate.Authenticate(ctx, "admin", "admin123")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if res.OK {
			t.Fatal("authenticated against missing directory")
		}
		if res != (Result{}) {
			t.Fatalf("missing directory result differs from credential failure: %+v", res)
		}
	}
}

func TestAuthenticateEachLoginNewSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gate := NewGate(testDirectory(), store)

	first, _ := gate.Authenticate(ctx, "viewer", "viewer123")
	second, _ := gate.Authenticate(ctx, "viewer", "viewer123")
	if first.Token == second.Token {
		t.Fatal("second login reused the first session token")
	}
	if _, ok, _ := store.Validate(ctx, first.Token); !ok {
		t.Fatal("first session was invalidated by second login")
	}
	if store.Len() != 2 {
		t.Fatalf("store has %d sessions, want 2", store.Len())
	}
}

func TestAuthenticateBcryptSecret(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	dir := Directory{"ops": {Name: "Ops", Secret: string(hash), Role: "admin"}}
	gate := NewGate(dir, NewMemoryStore())

	res, err := gate.Authenticate(ctx, "ops", "s3cret")
	if err != nil || !res.OK {
		t.Fatalf("Authenticate(hashed secret) = %+v, %v", res, err)
	}

	res, err = gate.Authenticate(ctx, "ops", "wrong")
	if err != nil || res.OK {
		t.Fatalf("Authenticate(hashed secret, wrong password) = %+v, %v", res, err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gate := NewGate(testDirectory(), store)

	res, _ := gate.Authenticate(ctx, "admin", "admin123")
	if err := gate.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok, _ := gate.ValidateSession(ctx, res.Token); ok {
		t.Fatal("session valid after logout")
	}
	// Logging out twice is fine.
	if err := gate.Logout(ctx, res.Token); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}
