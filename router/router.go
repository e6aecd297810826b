// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/chantier/agent"
	"github.com/danielhkuo/chantier/handlers"
	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/store"
)

// Deps are the services the routes are served from
type Deps struct {
	Store     *store.PostgresStore
	Assistant *agent.Assistant
	Executor  *agent.Executor
	Registry  *prometheus.Registry
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	httpMetrics := middleware.NewHTTPMetrics(d.Registry)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, httpMetrics.Instrument(pattern, middleware.WithLogging(h)))
	}

	// Initialize handlers
	materialsHandler := handlers.NewMaterialsHandler(d.Store)
	projectHandler := handlers.NewProjectHandler(d.Store)
	workerHandler := handlers.NewWorkerHandler(d.Store)
	userHandler := handlers.NewUserHandler(d.Store)
	queryHandler := handlers.NewQueryHandler(d.Store)
	assistantHandler := handlers.NewAssistantHandler(d.Assistant, d.Executor)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	// Materials
	handle("GET /api/materials", materialsHandler.GetMaterials)
	handle("PUT /api/materials", materialsHandler.UpdateMaterials)
	handle("PATCH /api/materials/cell", materialsHandler.UpdateCell)
	handle("GET /api/edit-history", materialsHandler.GetEditHistory)

	// Projects
	handle("GET /api/projects", projectHandler.ListProjects)
	handle("POST /api/projects", projectHandler.CreateProject)
	handle("GET /api/projects/{id}", projectHandler.GetProject)
	handle("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	handle("PUT /api/projects/{id}", projectHandler.UpdateProject)
	handle("DELETE /api/projects/{id}", projectHandler.DeleteProject)

	// Workers
	handle("GET /api/workers", workerHandler.ListWorkers)
	handle("POST /api/workers", workerHandler.CreateWorker)
	handle("GET /api/workers/{id}", workerHandler.GetWorker)
	handle("PUT /api/workers/{id}", workerHandler.UpdateWorker)
	handle("DELETE /api/workers/{id}", workerHandler.DeleteWorker)

	// Users
	handle("GET /api/users", userHandler.ListUsers)
	handle("POST /api/users", userHandler.CreateUser)
	handle("GET /api/users/roles", userHandler.ListRoles)
	handle("POST /api/users/login", userHandler.Login)
	handle("GET /api/users/{id}", userHandler.GetUser)
	handle("PATCH /api/users/{id}", userHandler.UpdateUser)
	handle("DELETE /api/users/{id}", userHandler.DeleteUser)

	// Read-only agent queries
	handle("GET /api/agent/items-needing-validation", queryHandler.ItemsNeedingValidation)
	handle("GET /api/agent/todo-items", queryHandler.TodoItems)
	handle("GET /api/agent/pricing-summary", queryHandler.PricingSummary)
	handle("GET /api/agent/sections/{section_id}/items", queryHandler.ItemsBySection)
	handle("GET /api/agent/search", queryHandler.SearchItems)

	// Assistant
	handle("POST /api/assistant/query", assistantHandler.Query)
	handle("GET /api/assistant/preview/{action_id}", assistantHandler.GetPreview)
	handle("POST /api/assistant/confirm-action", assistantHandler.ConfirmAction)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{
			Message: "Renovation Contractor API",
			Status:  "running",
		})
	})

	return mux
}
