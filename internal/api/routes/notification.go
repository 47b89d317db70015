package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/notifications"
)

// NotificationHandler handles notifications and moderation warnings.
type NotificationHandler struct {
	notify notifications.Service
}

// NotificationRoutes returns notification and warning routes. Everything
// here requires a session.
func NotificationRoutes(service notifications.Service, auth *middleware.Auth) chi.Router {
	h := &NotificationHandler{notify: service}
	r := chi.NewRouter()
	r.Use(auth.RequireSession)

	r.Get("/", h.List)
	r.Get("/broadcasts", h.Broadcasts)
	r.Get("/count", h.Count)
	r.Delete("/", h.Clear)
	r.Delete("/{id}", h.Delete)

	r.Post("/warnings", h.CreateWarning)
	r.Get("/warnings/{recipient}", h.ListWarnings)
	r.Delete("/warnings/{id}", h.DeleteWarning)

	return r
}

// List returns the caller's inbox, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	entries, err := h.notify.ListNotifications(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, entries)
}

// Broadcasts lists the staff stream; ?stream=audit selects the
// moderation audit log. Helper-only.
func (h *NotificationHandler) Broadcasts(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	selector := notifications.RecipientStaff
	if r.URL.Query().Get("stream") == "audit" {
		selector = notifications.RecipientAudit
	}

	entries, err := h.notify.ListBroadcasts(r.Context(), selector, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, entries)
}

// Count returns the caller's notification counter.
func (h *NotificationHandler) Count(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	count, err := h.notify.GetNotificationCount(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"count": count})
}

// Clear empties the caller's inbox and resets the counter.
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.notify.ClearNotifications(r.Context(), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// Delete removes one notification; recipient or Helper.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.notify.DeleteNotification(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// CreateWarning issues a moderation warning; Helper-only.
func (h *NotificationHandler) CreateWarning(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req notifications.WarningCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	warning, err := h.notify.CreateWarning(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, warning)
}

// ListWarnings lists a user's warnings; self or Helper.
func (h *NotificationHandler) ListWarnings(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	warnings, err := h.notify.ListWarnings(r.Context(), chi.URLParam(r, "recipient"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, warnings)
}

// DeleteWarning removes one warning; Helper-only.
func (h *NotificationHandler) DeleteWarning(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.notify.DeleteWarning(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}
