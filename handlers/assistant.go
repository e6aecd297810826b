// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/chantier/agent"
	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/models"
)

type AssistantHandler struct {
	assistant *agent.Assistant
	executor  *agent.Executor
}

func NewAssistantHandler(assistant *agent.Assistant, executor *agent.Executor) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, executor: executor}
}

// Query handles POST /api/assistant/query
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.assistant.Query(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, agent.ErrEmptyPrompt):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, agent.ErrUnavailable):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Assistant unavailable: OPENAI_API_KEY is not set")
		return
	case errors.Is(err, agent.ErrRateLimited):
		middleware.ErrorResponse(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, agent.ErrTooManyRounds), errors.Is(err, agent.ErrEmptyAnswer):
		slog.Error("assistant gave no answer", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, err.Error())
		return
	default:
		writeError(w, err, "query assistant")
		return
	}

	if resp.PendingAction != nil {
		slog.Info("assistant proposed action",
			"action_id", resp.PendingAction.ActionID,
			"action", resp.PendingAction.Preview.Action,
			"item_id", resp.PendingAction.Preview.ItemID,
		)
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetPreview handles GET /api/assistant/preview/{action_id}
func (h *AssistantHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	actionID := r.PathValue("action_id")
	if actionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "action_id is required")
		return
	}

	preview, err := h.executor.Preview(r.Context(), actionID)
	if err != nil {
		writeError(w, err, "get action preview")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, preview)
}

// ConfirmAction handles POST /api/assistant/confirm-action
func (h *AssistantHandler) ConfirmAction(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmActionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ActionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "action_id is required")
		return
	}

	resp, err := h.executor.Execute(r.Context(), req.ActionID)
	if err != nil {
		writeError(w, err, "execute action")
		return
	}

	slog.Info("action confirmed", "action_id", resp.ActionID, "status", resp.Status)

	middleware.JSONResponse(w, http.StatusOK, resp)
}
