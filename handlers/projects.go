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

type ProjectHandler struct {
	store *store.PostgresStore
}

func NewProjectHandler(s *store.PostgresStore) *ProjectHandler {
	return &ProjectHandler{store: s}
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	includeHidden := r.URL.Query().Get("include_hidden") == "true"

	projects, err := h.store.ListProjects(r.Context(), includeHidden)
	if err != nil {
		writeError(w, err, "list projects")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ProjectsResponse{Projects: orEmpty(projects)})
}

// GetProject handles GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "project id is required")
		return
	}

	p, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err, "get project")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectInput
	if err := middleware.ParseJSONBody(r, &in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.Name == nil || *in.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := h.store.CreateProject(r.Context(), in)
	if err != nil {
		writeError(w, err, "create project")
		return
	}

	slog.Info("project created", "project_id", p.ID)

	middleware.JSONResponse(w, http.StatusCreated, p)
}

// UpdateProject handles PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "project id is required")
		return
	}

	var in models.ProjectInput
	if err := middleware.ParseJSONBody(r, &in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.store.UpdateProject(r.Context(), id, in)
	if err != nil {
		writeError(w, err, "update project")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "project id is required")
		return
	}

	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		writeError(w, err, "delete project")
		return
	}

	slog.Info("project deleted", "project_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{
		Message: "Project deleted",
		Status:  "ok",
	})
}
