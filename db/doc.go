// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles PostgreSQL connections and schema creation.

# Connections

Open creates a pooled connection and pings it:

	conn, err := db.Open(ctx, cfg.DatabaseURL)

The server opens two pools: one for the API and one for agent reads, which
may point at a restricted database role.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - projects: Renovation projects and billing progress
  - sections: Groups of items, optionally owned by a project
  - items: Materials and products with prices
  - approvals: Client and contractor approval per item
  - replacement_urls: Alternative product links per approval
  - orders: Ordering and delivery tracking per item
  - comments: Client and contractor comments per item
  - custom_fields: Free-form JSON values per item
  - edit_history: Audit trail of every field change
  - workers, worker_jobs: Workers and their project assignments
  - users: Application accounts

# Relationships

	projects 1──* sections 1──* items
	items 1──* approvals 1──* replacement_urls
	items 1──1 orders
	items 1──* comments
	items 1──* custom_fields
	items 1──* edit_history (SET NULL on delete)
	workers 1──* worker_jobs *──1 projects (SET NULL on delete)

# Constraints

Check constraints guard enumerations (project status, approval status,
delivery status, user role), non-negative prices, dd/mm order dates and
positive quantities. The projects legacy-materials and demo-project are
flagged is_system and cannot be deleted.
*/
package db
