package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/bans"
)

// BanHandler handles global IP bans and per-user IP blocks.
type BanHandler struct {
	bans bans.Service
}

// BanRoutes returns ban and block routes. Everything requires a session;
// the service layer enforces staff bits.
func BanRoutes(service bans.Service, auth *middleware.Auth) chi.Router {
	h := &BanHandler{bans: service}
	r := chi.NewRouter()
	r.Use(auth.RequireSession)

	r.Post("/", h.CreateBan)
	r.Get("/", h.ListBans)
	r.Get("/{id}", h.GetBan)
	r.Delete("/{id}", h.DeleteBan)

	r.Post("/blocks", h.CreateBlock)
	r.Get("/blocks", h.ListBlocks)
	r.Delete("/blocks/{id}", h.DeleteBlock)

	return r
}

// CreateBan adds a global ban; Helper-only, audited.
func (h *BanHandler) CreateBan(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req bans.BanCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ban, err := h.bans.CreateBan(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, ban)
}

// ListBans lists every ban; Helper-only.
func (h *BanHandler) ListBans(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	entries, err := h.bans.ListBans(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, entries)
}

// GetBan reads one ban; Helper-only.
func (h *BanHandler) GetBan(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	ban, err := h.bans.GetBan(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, ban)
}

// DeleteBan lifts one ban; Helper, or Manager for another mod's ban.
func (h *BanHandler) DeleteBan(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.bans.DeleteBan(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// CreateBlock adds a personal IP block for the caller.
func (h *BanHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req bans.BlockCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	block, err := h.bans.CreateBlock(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, block)
}

// ListBlocks lists the caller's blocks.
func (h *BanHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	entries, err := h.bans.ListBlocks(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, entries)
}

// DeleteBlock removes a block; owner, or Manager for another user's.
func (h *BanHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.bans.DeleteBlock(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}
