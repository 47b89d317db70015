package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/profiles"
	"rbeam/internal/metrics"
)

// AuthHandler handles registration, login and account management.
type AuthHandler struct {
	profiles profiles.Service
	secure   bool
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(service profiles.Service, secure bool) *AuthHandler {
	return &AuthHandler{profiles: service, secure: secure}
}

// AuthRoutes registers identity and account routes.
func AuthRoutes(r chi.Router, service profiles.Service, auth *middleware.Auth, secure bool) {
	h := NewAuthHandler(service, secure)

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/callback", h.Callback)
	r.Get("/logout", h.Logout)

	// Public clean read; also the endpoint federated peers fetch.
	r.Get("/profile/{id}", h.GetProfile)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/me", h.Me)
		r.Delete("/me", h.DeleteMe)
		r.Post("/tokens", h.GenerateToken)
		r.Put("/tokens", h.UpdateTokens)
		r.Put("/password", h.ChangePassword)
		r.Put("/username", h.ChangeUsername)
		r.Put("/metadata", h.UpdateMetadata)
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates an account and starts its first session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req profiles.CreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.profiles.CreateProfile(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.ProfilesCreated.Inc()
	h.setSessionCookie(w, token, 365*24*60*60)
	writeOK(w, map[string]string{"token": token})
}

// Login authenticates and appends a fresh session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req profiles.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.profiles.Login(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.LoginsTotal.Inc()
	h.setSessionCookie(w, token, 365*24*60*60)
	writeOK(w, map[string]string{"token": token})
}

// Callback stores a token minted elsewhere (external auth flows) as the
// session cookie, then bounces the browser home.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, fmt.Errorf("token query parameter is required: %w", errs.ErrValue))
		return
	}

	// The cookie must carry the raw token verbatim; any transformation
	// here would break the hash lookup on the next request.
	h.setSessionCookie(w, token, 365*24*60*60)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html><html><head><meta http-equiv="refresh" content="0; url=/" /></head><body>Redirecting...</body></html>`))
}

// Logout clears the session cookie by expiring it with the sentinel
// value "refresh". The token itself stays valid until revoked through
// the token management endpoint.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "refresh", -1)
	writeOK(w, nil)
}

// GetProfile resolves any id form and returns the cleaned profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, profile.Clean())
}

// Me returns the caller's own profile with credentials stripped but
// session material intact, so clients can manage their tokens.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())

	own := *profile
	own.PasswordHash = ""
	own.Salt = ""
	writeOK(w, &own)
}

// DeleteMe is the self-service account deletion.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())

	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.DeleteProfile(r.Context(), profile.ID, req.Password); err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, "", -1)
	writeOK(w, nil)
}

// GenerateToken mints a scoped token for a third-party app.
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())
	callingToken, _ := middleware.SessionTokenFrom(r.Context())

	var req profiles.TokenContext
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.profiles.GenerateTokenFor(r.Context(), profile, callingToken, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]string{"token": token})
}

// UpdateTokens revokes every session not in the submitted set.
func (h *AuthHandler) UpdateTokens(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())

	var req struct {
		Tokens []string `json:"tokens"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.UpdateProfileTokens(r.Context(), profile, req.Tokens); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// ChangePassword rotates the credential pair.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())

	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.ChangePassword(r.Context(), profile.ID, req.Current, req.New); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// ChangeUsername renames the account.
func (h *AuthHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())

	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_username"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.ChangeUsername(r.Context(), profile.ID, req.Current, req.New); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// UpdateMetadata merges submitted kv settings into the caller's metadata.
func (h *AuthHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFrom(r.Context())

	var req map[string]string
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.profiles.UpdateMetadataKV(r.Context(), profile.ID, req); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}
