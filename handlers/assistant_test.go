// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/agent"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/testutil"
)

// recordingApplier counts applied actions without a database
type recordingApplier struct {
	mu    sync.Mutex
	count int
}

func (a *recordingApplier) ApplyAction(ctx context.Context, p models.ActionPreview) (models.ItemDoc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return models.ItemDoc{Product: p.ItemProduct}, nil
}

// newAssistantHandler builds a handler with no model configured
func newAssistantHandler(t *testing.T) (*AssistantHandler, actions.Store, *recordingApplier) {
	t.Helper()
	store := actions.NewMemoryStore(actions.DefaultTTL)
	applier := &recordingApplier{}
	executor := agent.NewExecutor(store, applier, nil)
	assistant := agent.NewAssistant(nil, agent.NewToolbox(nil, store, nil), executor, store, nil, nil)
	return NewAssistantHandler(assistant, executor), store, applier
}

func putAction(t *testing.T, store actions.Store, conversationID string) actions.Action {
	t.Helper()
	a, err := store.Put(context.Background(), conversationID, models.ActionPreview{
		Action:      models.ActionUpdateItemApproval,
		ItemID:      7,
		ItemProduct: "Robinet mitigeur",
		Role:        models.RoleClient,
		NewValue:    "approved",
		NLP:         "Mettre la validation du client pour « Robinet mitigeur » (Cuisine) à « validé »",
	})
	if err != nil {
		t.Fatalf("Failed to store action: %v", err)
	}
	return a
}

func TestAssistantQuery_Unavailable(t *testing.T) {
	handler, _, _ := newAssistantHandler(t)

	req := testutil.MakeRequest("POST", "/api/assistant/query", models.QueryRequest{Prompt: "Quel est le total ?"}, nil)
	w := httptest.NewRecorder()
	handler.Query(w, req)

	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
}

func TestAssistantQuery_Validation(t *testing.T) {
	handler, _, _ := newAssistantHandler(t)

	req := testutil.MakeRequest("POST", "/api/assistant/query", models.QueryRequest{Prompt: "   "}, nil)
	w := httptest.NewRecorder()
	handler.Query(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	req = httptest.NewRequest("POST", "/api/assistant/query", nil)
	w = httptest.NewRecorder()
	handler.Query(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestAssistantQuery_TextConfirmation(t *testing.T) {
	handler, store, applier := newAssistantHandler(t)
	a := putAction(t, store, "conv-1")

	// confirmation works without a model
	req := testutil.MakeRequest("POST", "/api/assistant/query", models.QueryRequest{
		Prompt:         "oui",
		ConversationID: "conv-1",
	}, nil)
	w := httptest.NewRecorder()
	handler.Query(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.QueryResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.ExecutedAction == nil || resp.ExecutedAction.ActionID != a.ID {
		t.Fatalf("Expected action %s executed, got %+v", a.ID, resp.ExecutedAction)
	}
	if resp.ExecutedAction.Status != models.StatusSuccess {
		t.Errorf("Expected status success, got '%s'", resp.ExecutedAction.Status)
	}
	if applier.count != 1 {
		t.Errorf("Expected 1 applied action, got %d", applier.count)
	}
}

func TestAssistantPreview(t *testing.T) {
	handler, store, _ := newAssistantHandler(t)
	a := putAction(t, store, "")

	req := httptest.NewRequest("GET", "/api/assistant/preview/"+a.ID, nil)
	req.SetPathValue("action_id", a.ID)
	w := httptest.NewRecorder()
	handler.GetPreview(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ActionPreviewResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Executed || resp.Preview.ItemID != 7 || resp.Preview.Action != models.ActionUpdateItemApproval {
		t.Errorf("Unexpected preview %+v", resp)
	}

	req = httptest.NewRequest("GET", "/api/assistant/preview/unknown", nil)
	req.SetPathValue("action_id", "unknown")
	w = httptest.NewRecorder()
	handler.GetPreview(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestConfirmAction(t *testing.T) {
	handler, store, applier := newAssistantHandler(t)
	a := putAction(t, store, "")

	confirm := func() (*httptest.ResponseRecorder, models.ExecuteActionResponse) {
		req := testutil.MakeRequest("POST", "/api/assistant/confirm-action", models.ConfirmActionRequest{ActionID: a.ID}, nil)
		w := httptest.NewRecorder()
		handler.ConfirmAction(w, req)
		var resp models.ExecuteActionResponse
		if w.Code == http.StatusOK {
			testutil.AssertJSON(t, w, &resp)
		}
		return w, resp
	}

	w, first := confirm()
	testutil.AssertStatus(t, w, http.StatusOK)
	if first.Status != models.StatusSuccess || first.Result == nil || !first.Result.Success {
		t.Errorf("Unexpected first confirmation %+v", first)
	}

	w, second := confirm()
	testutil.AssertStatus(t, w, http.StatusOK)
	if second.Status != models.StatusAlreadyExecuted {
		t.Errorf("Expected already_executed, got '%s'", second.Status)
	}
	if applier.count != 1 {
		t.Errorf("Expected the action applied once, got %d", applier.count)
	}
}

func TestConfirmAction_Errors(t *testing.T) {
	handler, _, _ := newAssistantHandler(t)

	testCases := []struct {
		name     string
		body     interface{}
		expected int
	}{
		{"missing id", models.ConfirmActionRequest{}, http.StatusBadRequest},
		{"unknown id", models.ConfirmActionRequest{ActionID: "does-not-exist"}, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/assistant/confirm-action", tc.body, nil)
			w := httptest.NewRecorder()
			handler.ConfirmAction(w, req)
			testutil.AssertStatus(t, w, tc.expected)
		})
	}
}
