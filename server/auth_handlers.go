package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/variant-group/icarus/auth"
)

// AuthCookieName is the name of the session cookie.
const AuthCookieName = "icarus_session"

type sessionContextKey struct{}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for POST /api/auth/login.
type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// UserResponse is the public user data returned in auth responses.
type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

// handleLogin authenticates a user and creates a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}

	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user id and password are required")
		return
	}

	res, err := s.gate.Authenticate(r.Context(), req.UserID, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	s.telemetry.RecordLogin(r.Context(), res.OK)
	if !res.OK {
		// Unknown user, bad password, and missing directory all land here.
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid user id or password")
		return
	}

	sess, _, _ := s.gate.ValidateSession(r.Context(), res.Token)
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, LoginResponse{
		User: UserResponse{
			ID:   res.UserID,
			Name: res.Name,
			Role: res.Role,
		},
		Token: res.Token,
	})
}

// handleLogout revokes the current session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractSessionToken(r)
	if token != "" {
		if err := s.gate.Logout(r.Context(), token); err != nil {
			s.logger.Warn("logout revoke failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the current authenticated user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token := extractSessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session token provided")
		return
	}

	sess, ok, err := s.gate.ValidateSession(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:   sess.UserID,
		Name: sess.Name,
		Role: sess.Role,
	})
}

// requireSession gates a handler behind a valid session and stashes the
// session in the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractSessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session token provided")
			return
		}

		sess, ok, err := s.gate.ValidateSession(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

// sessionFromContext returns the session stored by requireSession.
func sessionFromContext(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(auth.Session)
	return sess, ok
}

// extractSessionToken extracts the session token from the request.
// It checks the Authorization header first, then the cookie.
func extractSessionToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	cookie, err := r.Cookie(AuthCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}
