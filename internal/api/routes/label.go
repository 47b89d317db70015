package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/labels"
	"rbeam/internal/core/profiles"
)

// LabelHandler handles the label pool and assignments.
type LabelHandler struct {
	labels   labels.Service
	profiles profiles.Service
}

// LabelRoutes returns label routes.
func LabelRoutes(service labels.Service, p profiles.Service, auth *middleware.Auth) chi.Router {
	h := &LabelHandler{labels: service, profiles: p}
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
		r.Put("/assign/{user}", h.Assign)
	})

	return r
}

// List returns the whole pool.
func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	pool, err := h.labels.ListLabels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pool)
}

// Get reads one pool entry.
func (h *LabelHandler) Get(w http.ResponseWriter, r *http.Request) {
	label, err := h.labels.GetLabel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, label)
}

// Create adds a pool entry; Helper-only.
func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req labels.Create
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	label, err := h.labels.CreateLabel(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, label)
}

// Delete removes a pool entry; Helper-only.
func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.labels.DeleteLabel(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// Assign replaces a user's label list; Helper-only.
func (h *LabelHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	target, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Labels []string `json:"labels"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.labels.AssignLabels(r.Context(), target, req.Labels, actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}
