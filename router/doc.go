// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Chantier API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Deps{
		Store:     store,
		Assistant: assistant,
		Executor:  executor,
		Registry:  registry,
	})

Every API route is wrapped with request logging and Prometheus metrics
labelled by its pattern.

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Materials:

	GET   /api/materials
	PUT   /api/materials
	PATCH /api/materials/cell
	GET   /api/edit-history

Projects, workers and users:

	GET|POST              /api/projects
	GET|PATCH|PUT|DELETE  /api/projects/{id}
	GET|POST              /api/workers
	GET|PUT|DELETE        /api/workers/{id}
	GET|POST              /api/users
	GET                   /api/users/roles
	POST                  /api/users/login
	GET|PATCH|DELETE      /api/users/{id}

Read-only agent queries:

	GET /api/agent/items-needing-validation?role=
	GET /api/agent/todo-items?role=
	GET /api/agent/pricing-summary
	GET /api/agent/sections/{section_id}/items
	GET /api/agent/search?q=

Assistant:

	POST /api/assistant/query
	GET  /api/assistant/preview/{action_id}
	POST /api/assistant/confirm-action
*/
package router
