// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/chantier/models"
)

// TestConcurrentConfirmations verifies that simultaneous confirmations of
// the same action apply the change exactly once
func TestConcurrentConfirmations(t *testing.T) {
	handler, store, applier := newAssistantHandler(t)
	action := putAction(t, store, "")

	numClients := 10
	var successCount, repeatCount, busyCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, _ := json.Marshal(models.ConfirmActionRequest{ActionID: action.ID})
			req := httptest.NewRequest("POST", "/api/assistant/confirm-action", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.ConfirmAction(w, req)

			// 409 while the first confirmation is still being applied
			if w.Code == http.StatusConflict {
				busyCount.Add(1)
				return
			}
			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
				return
			}
			var resp models.ExecuteActionResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Errorf("Failed to decode response: %v", err)
				return
			}
			switch resp.Status {
			case models.StatusSuccess:
				successCount.Add(1)
			case models.StatusAlreadyExecuted:
				if resp.Result == nil || !resp.Result.Success {
					t.Errorf("Expected the first result with already_executed, got %+v", resp)
				}
				repeatCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful confirmation, got %d", successCount.Load())
	}
	if int(repeatCount.Load()+busyCount.Load()) != numClients-1 {
		t.Errorf("Expected %d already_executed or 409 responses, got %d and %d", numClients-1, repeatCount.Load(), busyCount.Load())
	}

	applier.mu.Lock()
	defer applier.mu.Unlock()
	if applier.count != 1 {
		t.Errorf("Expected the change to be applied once, got %d", applier.count)
	}
}
