package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"rbeam/internal/core/profiles"
)

// Context keys for storing session information
type contextKey string

const (
	profileKey contextKey = "session_profile"
	tokenKey   contextKey = "session_token"
)

// TokenCookie carries the raw session token. The __Secure- prefix is
// only honored by browsers over https; the name is kept on http so dev
// and prod read the same cookie.
const TokenCookie = "__Secure-Token"

// Auth resolves the session token on incoming requests.
type Auth struct {
	profiles profiles.Service
}

// NewAuth creates the session middleware.
func NewAuth(service profiles.Service) *Auth {
	return &Auth{profiles: service}
}

// token extracts the raw session token: Authorization bearer first
// (API clients), then the session cookie (browsers).
func (m *Auth) token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireSession enforces an authenticated session. The resolved profile
// and raw token are injected into the request context.
func (m *Auth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.token(r)
		if token == "" {
			writeAuthError(w, "authentication required")
			return
		}

		profile, err := m.profiles.GetProfileByUnhashedToken(r.Context(), token)
		if err != nil {
			slog.Debug("session lookup failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			writeAuthError(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), profileKey, profile)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalSession loads the session when present but never rejects.
func (m *Auth) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.token(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		profile, err := m.profiles.GetProfileByUnhashedToken(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), profileKey, profile)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ProfileFrom returns the authenticated profile, if any.
func ProfileFrom(ctx context.Context) (*profiles.Profile, bool) {
	profile, ok := ctx.Value(profileKey).(*profiles.Profile)
	return profile, ok
}

// SessionTokenFrom returns the raw session token, if any.
func SessionTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	}); err != nil {
		slog.Warn("failed to write auth error", slog.String("error", err.Error()))
	}
}
