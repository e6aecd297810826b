// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Materials Document

The frontend reads and writes materials as one JSON document:

  - MaterialsDocument: currency, sections
  - SectionDoc: id, label, items
  - ItemDoc: product, reference, supplierLink, laborType, price,
    approvals, order, comments, chantier

The document uses "cray" for the contractor role and "alternative" for a
change order; the database uses "contractor" and "change_order".

# Domain Types

  - Project: a renovation project (chantier)
  - Worker, WorkerJob: salaried workers and their assignments
  - User: application account
  - EditHistoryEntry: audit row for a single field change
  - ActionPreview: proposed agent change awaiting confirmation

# Enum Mappings

	code, ok := models.ParseWorkType("Plomberie & CVC") // "plumbing"
	status, ok := models.ParseApprovalStatus("alternative") // "change_order"
	role, ok := models.ParseRole("cray") // "contractor"

# Constants

Approval statuses:

	ApprovalApproved    = "approved"
	ApprovalRejected    = "rejected"
	ApprovalChangeOrder = "change_order"
	ApprovalPending     = "pending"
	ApprovalSuppliedBy  = "supplied_by"

Edit sources:

	SourceManual = "manual"
	SourceAgent  = "agent"

User roles:

	UserAdmin, UserContractor, UserClient, UserWorker
*/
package models
