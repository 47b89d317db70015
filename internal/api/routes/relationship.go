package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/follows"
	"rbeam/internal/core/profiles"
	"rbeam/internal/core/relationships"
)

// RelationshipHandler handles follows and the relationship state machine.
type RelationshipHandler struct {
	follows  follows.Service
	rels     relationships.Service
	profiles profiles.Service
}

// RelationshipRoutes returns the social graph routes.
func RelationshipRoutes(f follows.Service, rels relationships.Service, p profiles.Service, auth *middleware.Auth) chi.Router {
	h := &RelationshipHandler{follows: f, rels: rels, profiles: p}
	r := chi.NewRouter()

	r.Get("/followers/{id}", h.ListFollowers)
	r.Get("/following/{id}", h.ListFollowing)
	r.Get("/followers/{id}/count", h.CountFollowers)
	r.Get("/following/{id}/count", h.CountFollowing)
	r.Get("/friends/{id}/count", h.CountFriends)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Post("/follow/{id}", h.ToggleFollow)
		r.Post("/friend/{id}", h.Friend)
		r.Post("/block/{id}", h.Block)
		r.Delete("/{id}", h.Remove)
		r.Get("/status/{id}", h.Status)
		r.Get("/friends", h.ListFriends)
	})

	return r
}

func (h *RelationshipHandler) resolve(w http.ResponseWriter, r *http.Request) (*profiles.Profile, bool) {
	other, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return other, true
}

// ToggleFollow follows the target, or unfollows when already following.
func (h *RelationshipHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())
	other, ok := h.resolve(w, r)
	if !ok {
		return
	}

	following, err := h.follows.Toggle(r.Context(), actor, other)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]bool{"following": following})
}

// Friend sends or accepts a friend request.
func (h *RelationshipHandler) Friend(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())
	other, ok := h.resolve(w, r)
	if !ok {
		return
	}

	status, err := h.rels.Friend(r.Context(), actor, other)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]relationships.Status{"status": status})
}

// Block establishes the actor as the blocker.
func (h *RelationshipHandler) Block(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())
	other, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if err := h.rels.Block(r.Context(), actor, other); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// Remove returns the pair to Unknown (cancel, unfriend or unblock).
func (h *RelationshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())
	other, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if err := h.rels.Remove(r.Context(), actor, other); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// Status returns the relationship status between the caller and target.
func (h *RelationshipHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())
	other, ok := h.resolve(w, r)
	if !ok {
		return
	}

	status, one, _, err := h.rels.GetRelationship(r.Context(), actor.ID, other.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"status": status, "initiator": one})
}

// ListFriends lists the caller's friends.
func (h *RelationshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	friends, err := h.rels.ListFriends(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, friends)
}

func (h *RelationshipHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	edges, err := h.follows.ListFollowers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, edges)
}

func (h *RelationshipHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	edges, err := h.follows.ListFollowing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, edges)
}

func (h *RelationshipHandler) CountFollowers(w http.ResponseWriter, r *http.Request) {
	count, err := h.follows.GetFollowersCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"count": count})
}

func (h *RelationshipHandler) CountFollowing(w http.ResponseWriter, r *http.Request) {
	count, err := h.follows.GetFollowingCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"count": count})
}

func (h *RelationshipHandler) CountFriends(w http.ResponseWriter, r *http.Request) {
	count, err := h.rels.GetFriendsCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]int64{"count": count})
}
