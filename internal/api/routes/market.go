package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rbeam/internal/api/middleware"
	"rbeam/internal/core/market"
	"rbeam/internal/metrics"
)

// MarketHandler handles marketplace items and coin transactions.
type MarketHandler struct {
	market market.Service
}

// MarketRoutes registers marketplace routes.
func MarketRoutes(r chi.Router, service market.Service, auth *middleware.Auth) {
	h := &MarketHandler{market: service}

	r.Get("/items/{id}", h.GetItem)
	r.Get("/items", h.ListItems)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Post("/items", h.CreateItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Put("/items/{id}/content", h.UpdateItemContent)
		r.Put("/items/{id}/status", h.UpdateItemStatus)
		r.Delete("/items/{id}", h.DeleteItem)

		r.Post("/transactions", h.CreateTransaction)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Get("/items/{id}/owned", h.CheckOwnership)
	})
}

// CreateItem lists a new item in Pending status.
func (h *MarketHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req market.ItemCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.market.CreateItem(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, item)
}

// GetItem reads one listing; "0" returns the synthetic system item.
func (h *MarketHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.market.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, item)
}

// ListItems lists by creator or status, whichever filter is present.
func (h *MarketHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	if creator := r.URL.Query().Get("creator"); creator != "" {
		items, err := h.market.ListItemsByCreator(r.Context(), creator)
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, items)
		return
	}

	status := market.ItemStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = market.ItemApproved
	}
	items, err := h.market.ListItemsByStatus(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, items)
}

// UpdateItem edits listing fields; creator or Helper.
func (h *MarketHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req market.ItemEdit
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.market.UpdateItem(r.Context(), chi.URLParam(r, "id"), req, actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// UpdateItemContent edits the item payload; creator or Helper.
func (h *MarketHandler) UpdateItemContent(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req struct {
		Content string `json:"content"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.market.UpdateItemContent(r.Context(), chi.URLParam(r, "id"), req.Content, actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// UpdateItemStatus moves an item through moderation; Helper-only.
func (h *MarketHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req struct {
		Status market.ItemStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.market.UpdateItemStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// DeleteItem removes one listing; creator or Helper.
func (h *MarketHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	if err := h.market.DeleteItem(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// CreateTransaction commits a coin movement with the caller as customer.
func (h *MarketHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	var req market.TransactionCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.market.CreateTransaction(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.TransactionsTotal.Inc()
	writeOK(w, transaction)
}

// ListTransactions lists movements where the caller is a party.
func (h *MarketHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	movements, err := h.market.ListTransactions(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, movements)
}

// GetTransaction reads one movement.
func (h *MarketHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.market.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, transaction)
}

// CheckOwnership reports whether the caller holds a transaction on the
// item; used before serving purchased content.
func (h *MarketHandler) CheckOwnership(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFrom(r.Context())

	transaction, err := h.market.GetTransactionByCustomerItem(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, transaction)
}
