// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SystemProjectIDs are projects that can never be deleted
var SystemProjectIDs = []string{"legacy-materials", "demo-project"}

const schema = `
-- Projects (chantiers)
CREATE TABLE IF NOT EXISTS projects (
    id VARCHAR(50) PRIMARY KEY CHECK (LENGTH(id) > 0),
    name VARCHAR(255) NOT NULL CHECK (LENGTH(name) > 0),
    address VARCHAR(255),
    client_name VARCHAR(255),
    status VARCHAR(50) NOT NULL DEFAULT 'draft'
        CHECK (status IN ('draft', 'ready', 'active', 'completed', 'archived')),
    devis_status VARCHAR(50)
        CHECK (devis_status IS NULL OR devis_status IN ('sent', 'approved', 'rejected')),
    invoice_count INTEGER NOT NULL DEFAULT 0 CHECK (invoice_count >= 0),
    percentage_paid INTEGER NOT NULL DEFAULT 0 CHECK (percentage_paid >= 0 AND percentage_paid <= 100),
    start_date TIMESTAMPTZ,
    end_date TIMESTAMPTZ,
    is_demo BOOLEAN NOT NULL DEFAULT FALSE,
    has_data BOOLEAN NOT NULL DEFAULT FALSE,
    hidden BOOLEAN NOT NULL DEFAULT FALSE,
    is_system BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (start_date IS NULL OR end_date IS NULL OR start_date <= end_date)
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);

UPDATE projects SET is_system = TRUE
WHERE id IN ('legacy-materials', 'demo-project') AND NOT is_system;

-- Sections
CREATE TABLE IF NOT EXISTS sections (
    id VARCHAR(50) PRIMARY KEY CHECK (LENGTH(id) > 0),
    label VARCHAR(255) NOT NULL CHECK (LENGTH(label) > 0),
    project_id VARCHAR(50) REFERENCES projects(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sections_project ON sections(project_id);

-- Items
CREATE TABLE IF NOT EXISTS items (
    id SERIAL PRIMARY KEY,
    section_id VARCHAR(50) NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
    product TEXT NOT NULL CHECK (LENGTH(TRIM(product)) > 0),
    reference VARCHAR(255),
    supplier_link TEXT,
    labor_type VARCHAR(50),
    price_ttc NUMERIC(10, 2) CHECK (price_ttc IS NULL OR price_ttc >= 0),
    price_ht_quote NUMERIC(10, 2) CHECK (price_ht_quote IS NULL OR price_ht_quote >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (section_id, product)
);

CREATE INDEX IF NOT EXISTS idx_items_section ON items(section_id);
CREATE INDEX IF NOT EXISTS idx_items_product ON items(product);

-- Approvals, one per item and role
CREATE TABLE IF NOT EXISTS approvals (
    id SERIAL PRIMARY KEY,
    item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    role VARCHAR(50) NOT NULL CHECK (role IN ('client', 'contractor')),
    status VARCHAR(50)
        CHECK (status IS NULL OR status IN ('approved', 'rejected', 'change_order', 'pending', 'supplied_by')),
    note TEXT,
    validated_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (item_id, role)
);

CREATE INDEX IF NOT EXISTS idx_approvals_item ON approvals(item_id);
CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);

-- Replacement URLs
CREATE TABLE IF NOT EXISTS replacement_urls (
    id SERIAL PRIMARY KEY,
    approval_id INTEGER NOT NULL REFERENCES approvals(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_replacement_urls_approval ON replacement_urls(approval_id);

-- Orders, at most one per item
CREATE TABLE IF NOT EXISTS orders (
    id SERIAL PRIMARY KEY,
    item_id INTEGER NOT NULL UNIQUE REFERENCES items(id) ON DELETE CASCADE,
    ordered BOOLEAN NOT NULL DEFAULT FALSE,
    order_date VARCHAR(10) CHECK (order_date IS NULL OR order_date ~ '^\d{2}/\d{2}$'),
    delivery_date VARCHAR(10) CHECK (delivery_date IS NULL OR delivery_date ~ '^\d{2}/\d{2}$'),
    delivery_status VARCHAR(50)
        CHECK (delivery_status IS NULL OR delivery_status IN ('pending', 'ordered', 'shipped', 'delivered', 'cancelled')),
    quantity INTEGER CHECK (quantity IS NULL OR quantity > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_ordered ON orders(ordered);

-- Comments, one per item and role
CREATE TABLE IF NOT EXISTS comments (
    id SERIAL PRIMARY KEY,
    item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    role VARCHAR(50) NOT NULL CHECK (role IN ('client', 'contractor')),
    comment_text TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (item_id, role)
);

-- Custom fields
CREATE TABLE IF NOT EXISTS custom_fields (
    id SERIAL PRIMARY KEY,
    item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    field_name VARCHAR(100) NOT NULL,
    field_value JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (item_id, field_name)
);

-- Edit history
CREATE TABLE IF NOT EXISTS edit_history (
    id SERIAL PRIMARY KEY,
    item_id INTEGER REFERENCES items(id) ON DELETE SET NULL,
    section_id VARCHAR(50),
    section_label VARCHAR(255),
    product TEXT,
    field_path VARCHAR(255) NOT NULL CHECK (LENGTH(field_path) > 0),
    old_value JSONB,
    new_value JSONB,
    source VARCHAR(50) NOT NULL DEFAULT 'manual' CHECK (source IN ('manual', 'agent')),
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_edit_history_item ON edit_history(item_id);
CREATE INDEX IF NOT EXISTS idx_edit_history_timestamp ON edit_history(timestamp);

-- Workers and their job assignments
CREATE TABLE IF NOT EXISTS workers (
    id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255) NOT NULL CHECK (LENGTH(name) > 0),
    email VARCHAR(255),
    phone VARCHAR(50),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS worker_jobs (
    id VARCHAR(100) PRIMARY KEY,
    worker_id VARCHAR(50) NOT NULL REFERENCES workers(id) ON DELETE CASCADE,
    project_id VARCHAR(50) REFERENCES projects(id) ON DELETE SET NULL,
    chantier_name VARCHAR(255) NOT NULL,
    job_type VARCHAR(50),
    start_date TIMESTAMPTZ NOT NULL,
    end_date TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (end_date IS NULL OR start_date <= end_date)
);

CREATE INDEX IF NOT EXISTS idx_worker_jobs_worker ON worker_jobs(worker_id);
CREATE INDEX IF NOT EXISTS idx_worker_jobs_project ON worker_jobs(project_id);

-- Users
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(50) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash TEXT,
    role VARCHAR(50) NOT NULL CHECK (role IN ('admin', 'contractor', 'client', 'worker')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_login TIMESTAMPTZ
);
`
