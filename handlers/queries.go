// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/store"
)

// QueryHandler exposes the assistant's read-only tools over REST
type QueryHandler struct {
	store *store.PostgresStore
}

func NewQueryHandler(s *store.PostgresStore) *QueryHandler {
	return &QueryHandler{store: s}
}

type itemsResponse struct {
	Items any `json:"items"`
}

// ItemsNeedingValidation handles GET /api/agent/items-needing-validation?role=
func (h *QueryHandler) ItemsNeedingValidation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("role") == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "role is required")
		return
	}

	items, err := h.store.ItemsNeedingValidation(r.Context(), q.Get("role"), q.Get("project_id"))
	if err != nil {
		writeError(w, err, "query items needing validation")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, itemsResponse{Items: orEmpty(items)})
}

// TodoItems handles GET /api/agent/todo-items?role=
func (h *QueryHandler) TodoItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("role") == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "role is required")
		return
	}

	items, err := h.store.TodoItems(r.Context(), q.Get("role"), q.Get("project_id"))
	if err != nil {
		writeError(w, err, "query todo items")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, itemsResponse{Items: orEmpty(items)})
}

// PricingSummary handles GET /api/agent/pricing-summary
func (h *QueryHandler) PricingSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.PricingSummary(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		writeError(w, err, "query pricing summary")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, sum)
}

// ItemsBySection handles GET /api/agent/sections/{section_id}/items
func (h *QueryHandler) ItemsBySection(w http.ResponseWriter, r *http.Request) {
	sectionID := r.PathValue("section_id")
	if sectionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "section_id is required")
		return
	}

	items, err := h.store.ItemsBySection(r.Context(), sectionID, r.URL.Query().Get("project_id"))
	if err != nil {
		writeError(w, err, "query items by section")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, itemsResponse{Items: orEmpty(items)})
}

// SearchItems handles GET /api/agent/search?q=
func (h *QueryHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "q is required")
		return
	}

	items, err := h.store.SearchItems(r.Context(), q.Get("q"), q.Get("project_id"))
	if err != nil {
		writeError(w, err, "search items")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, itemsResponse{Items: orEmpty(items)})
}
