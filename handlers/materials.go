// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/store"
)

type MaterialsHandler struct {
	store *store.PostgresStore
}

func NewMaterialsHandler(s *store.PostgresStore) *MaterialsHandler {
	return &MaterialsHandler{store: s}
}

// GetMaterials handles GET /api/materials
func (h *MaterialsHandler) GetMaterials(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetMaterials(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		writeError(w, err, "load materials")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, doc)
}

// UpdateMaterials handles PUT /api/materials
func (h *MaterialsHandler) UpdateMaterials(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMaterialsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON: materials must be an object with a sections array")
		return
	}
	if req.Materials == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Materials must be a JSON object")
		return
	}
	if req.Materials.Sections == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing 'sections' field")
		return
	}

	projectID := req.ProjectID
	if projectID == "" {
		projectID = r.URL.Query().Get("project_id")
	}

	if err := h.store.SaveMaterials(r.Context(), *req.Materials, projectID); err != nil {
		writeError(w, err, "update materials")
		return
	}

	slog.Info("materials saved", "sections", len(req.Materials.Sections), "project_id", projectID)

	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{
		Message: "Materials updated successfully",
		Status:  "ok",
	})
}

// UpdateCell handles PATCH /api/materials/cell
func (h *MaterialsHandler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCellRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SectionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "section_id is required")
		return
	}
	if req.ItemIndex == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "item_index is required")
		return
	}
	if req.FieldPath == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "field_path is required")
		return
	}

	item, err := h.store.UpdateCell(r.Context(), req)
	if err != nil {
		writeError(w, err, "update cell")
		return
	}

	slog.Info("cell updated", "section_id", req.SectionID, "item_index", *req.ItemIndex, "field_path", req.FieldPath)

	middleware.JSONResponse(w, http.StatusOK, item)
}

// GetEditHistory handles GET /api/edit-history
func (h *MaterialsHandler) GetEditHistory(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(r, "item_id")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "item_id must be a positive integer")
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	entries, err := h.store.EditHistory(r.Context(), itemID, int(limit))
	if err != nil {
		writeError(w, err, "load edit history")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.EditHistoryResponse{Entries: orEmpty(entries)})
}
