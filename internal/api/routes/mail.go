package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/mail"
	"rbeam/internal/metrics"
)

// MailHandler handles letters: local send, inbox/outbox, state and the
// inbound federation endpoint.
type MailHandler struct {
	mail mail.Service
}

// MailRoutes returns mail routes.
func MailRoutes(service mail.Service, auth *middleware.Auth) chi.Router {
	h := &MailHandler{mail: service}
	r := chi.NewRouter()

	// Send doubles as the federation delivery endpoint: peers POST here
	// without a session.
	r.With(auth.OptionalSession).Post("/", h.Create)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/inbox", h.Inbox)
		r.Get("/outbox", h.Outbox)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/state", h.SetState)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// Create stores a letter. A session means a local send; without one the
// body must be a peer-delivered letter with a qualified author.
func (h *MailHandler) Create(w http.ResponseWriter, r *http.Request) {
	if author, ok := middleware.ProfileFrom(r.Context()); ok {
		var req mail.Create
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}

		letter, err := h.mail.CreateMail(r.Context(), req, author)
		if err != nil {
			writeError(w, err)
			return
		}
		metrics.MailSent.Inc()
		writeOK(w, letter)
		return
	}

	var letter mail.Mail
	if err := decode(r, &letter); err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.mail.ReceiveRemote(r.Context(), &letter)
	if err != nil {
		metrics.RemoteDeliveries.WithLabelValues("rejected").Inc()
		writeError(w, err)
		return
	}
	metrics.RemoteDeliveries.WithLabelValues("accepted").Inc()
	writeOK(w, stored)
}

// Inbox lists letters addressed to the caller.
func (h *MailHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	letters, err := h.mail.GetInbox(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, letters)
}

// Outbox lists letters the caller authored.
func (h *MailHandler) Outbox(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	letters, err := h.mail.GetOutbox(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, letters)
}

// Get reads one letter; participant or Helper.
func (h *MailHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	letter, err := h.mail.GetMail(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, letter)
}

// SetState transitions the read state.
func (h *MailHandler) SetState(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req mail.SetState
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.mail.UpdateMailState(r.Context(), chi.URLParam(r, "id"), req, actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// Delete removes one letter; participant or Helper.
func (h *MailHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.mail.DeleteMail(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}
