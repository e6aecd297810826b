// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/models"
)

// ErrInProgress is returned while another caller is still applying the action
var ErrInProgress = errors.New("action is being executed")

// Applier writes a confirmed preview to the database
type Applier interface {
	ApplyAction(ctx context.Context, preview models.ActionPreview) (models.ItemDoc, error)
}

// Executor runs confirmed actions at most once
type Executor struct {
	actions actions.Store
	applier Applier
	metrics *Metrics
}

func NewExecutor(store actions.Store, applier Applier, metrics *Metrics) *Executor {
	return &Executor{actions: store, applier: applier, metrics: metrics}
}

// Preview returns a pending or executed action that has not expired
func (e *Executor) Preview(ctx context.Context, actionID string) (models.ActionPreviewResponse, error) {
	a, err := e.actions.Get(ctx, actionID)
	if err != nil {
		return models.ActionPreviewResponse{}, err
	}
	return models.ActionPreviewResponse{
		ActionID:  a.ID,
		Preview:   a.Preview,
		Executed:  a.Executed,
		ExpiresAt: a.ExpiresAt,
	}, nil
}

// Execute applies the action. A later call reports already_executed with
// the first result, or ErrInProgress while the first apply has not finished.
// Unknown and expired ids give actions.ErrNotFound.
func (e *Executor) Execute(ctx context.Context, actionID string) (models.ExecuteActionResponse, error) {
	a, err := e.actions.Claim(ctx, actionID)
	if errors.Is(err, actions.ErrAlreadyExecuted) {
		// claimed but no result stored yet: the apply may still fail
		if a.Result == nil {
			e.metrics.action(a.Preview.Action, "in_progress")
			return models.ExecuteActionResponse{}, ErrInProgress
		}
		e.metrics.action(a.Preview.Action, "already_executed")
		return models.ExecuteActionResponse{
			Status:   models.StatusAlreadyExecuted,
			ActionID: a.ID,
			Result:   a.Result,
			Preview:  &a.Preview,
		}, nil
	}
	if err != nil {
		return models.ExecuteActionResponse{}, err
	}

	if _, err := e.applier.ApplyAction(ctx, a.Preview); err != nil {
		e.metrics.action(a.Preview.Action, "failed")
		if relErr := e.actions.Release(context.WithoutCancel(ctx), a.ID); relErr != nil {
			slog.Error("failed to release action", "action_id", a.ID, "error", relErr)
		}
		return models.ExecuteActionResponse{}, err
	}

	result := models.ActionResult{Success: true}
	if err := e.actions.Complete(context.WithoutCancel(ctx), a.ID, result); err != nil {
		slog.Error("failed to record action result", "action_id", a.ID, "error", err)
	}
	e.metrics.action(a.Preview.Action, "executed")

	return models.ExecuteActionResponse{
		Status:   models.StatusSuccess,
		ActionID: a.ID,
		Result:   &result,
		Preview:  &a.Preview,
	}, nil
}
