// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Chantier API.

# Handler Types

Each handler is a struct over the store:

  - MaterialsHandler: materials document, cell edits, edit history
  - ProjectHandler: project CRUD
  - WorkerHandler: workers and their jobs
  - UserHandler: user accounts and credential checks
  - QueryHandler: read-only agent queries over REST
  - AssistantHandler: LLM assistant queries and action confirmation

Handlers are created via constructor functions:

	materials := handlers.NewMaterialsHandler(store)

# Materials

	GET   /api/materials        → GetMaterials (optional ?project_id=)
	PUT   /api/materials        → UpdateMaterials (body {materials:{sections:[...]}})
	PATCH /api/materials/cell   → UpdateCell
	GET   /api/edit-history     → GetEditHistory (?item_id=&limit=)

# Assistant

The assistant never writes directly. Update tools produce a preview that
is stored under an action id; the change is applied when the action is
confirmed, either through confirm-action or by answering "oui" in the
same conversation.

	POST /api/assistant/query              → Query
	GET  /api/assistant/preview/{action_id} → GetPreview
	POST /api/assistant/confirm-action     → ConfirmAction

Query returns 503 when no OpenAI key is configured.

# Errors

Store errors map to statuses in writeError: ErrInvalid → 400,
ErrNotFound → 404, ErrConflict and agent.ErrInProgress → 409, role
refusals → 403 and bad credentials → 401. Anything else is logged and returned as 500.
*/
package handlers
