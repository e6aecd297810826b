// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Chantier API server.

Chantier tracks renovation projects: the materials list of each site
(sections, items, prices, client and contractor approvals, orders,
comments), the workers assigned to each site, and user accounts. An
optional LLM assistant answers questions about the materials and
proposes changes that are applied only once confirmed.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... go run .

Or with flags:

	go run . -p 8000 -d "postgres://..."

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string

Optional settings:

  - PORT (-p): Server port (default: 8000)
  - AGENT_DATABASE_URL (-agent-d): restricted pool for agent reads
  - OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL: assistant model
  - CORS_ORIGINS (-cors): comma-separated origins (default: http://localhost:5173)
  - ACTION_TTL (-action-ttl): pending action lifetime (default: 5m)
  - ACTION_STORE_PATH (-action-store): SQLite file for pending actions
  - SQL_LOG_FILE (-sql-log): JSON log of agent SQL queries
  - LLM_RATE_LIMIT (-llm-rate): LLM requests per second (default: 1)

# Architecture

  - handlers: HTTP request handlers (materials, projects, workers, users, queries, assistant)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, metrics, JSON helpers
  - store: all SQL against the renovation schema
  - actions: pending actions awaiting confirmation
  - agent: LLM tools, dispatcher and assistant loop
  - models: domain and request/response types
  - auth: ids, action tokens, passwords and role permissions
  - db: schema creation and connection pool
  - cliparse: configuration parsing

The cmd/import-json tool loads and exports the legacy JSON files.
*/
package main
