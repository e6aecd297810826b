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

type WorkerHandler struct {
	store *store.PostgresStore
}

func NewWorkerHandler(s *store.PostgresStore) *WorkerHandler {
	return &WorkerHandler{store: s}
}

// ListWorkers handles GET /api/workers
func (h *WorkerHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, err, "list workers")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.WorkersResponse{Workers: orEmpty(workers)})
}

// GetWorker handles GET /api/workers/{id}
func (h *WorkerHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.store.GetWorker(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get worker")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, worker)
}

// CreateWorker handles POST /api/workers
func (h *WorkerHandler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var in models.WorkerInput
	if err := middleware.ParseJSONBody(r, &in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	worker, err := h.store.SaveWorker(r.Context(), in, true)
	if err != nil {
		writeError(w, err, "create worker")
		return
	}

	slog.Info("worker created", "worker_id", worker.ID, "jobs", len(worker.Jobs))

	middleware.JSONResponse(w, http.StatusCreated, worker)
}

// UpdateWorker handles PUT /api/workers/{id}. Jobs, when present, replace
// the worker's current jobs.
func (h *WorkerHandler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "worker id is required")
		return
	}

	var in models.WorkerInput
	if err := middleware.ParseJSONBody(r, &in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	in.ID = id

	worker, err := h.store.SaveWorker(r.Context(), in, false)
	if err != nil {
		writeError(w, err, "update worker")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, worker)
}

// DeleteWorker handles DELETE /api/workers/{id}
func (h *WorkerHandler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteWorker(r.Context(), id); err != nil {
		writeError(w, err, "delete worker")
		return
	}

	slog.Info("worker deleted", "worker_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{
		Message: "Worker deleted",
		Status:  "ok",
	})
}
