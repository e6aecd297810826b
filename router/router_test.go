// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/agent"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/store"
	"github.com/danielhkuo/chantier/testutil"
)

// newTestRouter wires the routes without a model. The store is only
// reached by routes that pass validation, so s may be nil.
func newTestRouter(t *testing.T, s *store.PostgresStore) *http.ServeMux {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := agent.NewMetrics(reg)
	pending := actions.NewMemoryStore(actions.DefaultTTL)
	t.Cleanup(func() { pending.Close() })

	var data agent.DataStore
	var applier agent.Applier
	if s != nil {
		data, applier = s, s
	}
	executor := agent.NewExecutor(pending, applier, metrics)
	assistant := agent.NewAssistant(nil, agent.NewToolbox(data, pending, metrics), executor, pending, nil, metrics)

	return NewRouter(Deps{Store: s, Assistant: assistant, Executor: executor, Registry: reg})
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.StatusResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Status != "running" {
		t.Errorf("Expected status 'running', got '%s'", resp.Status)
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	mux := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/unknown", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRoutesWithoutDatabase(t *testing.T) {
	mux := newTestRouter(t, nil)

	testCases := []struct {
		method   string
		path     string
		body     interface{}
		expected int
	}{
		{"PUT", "/api/materials", map[string]any{"materials": map[string]any{}}, http.StatusBadRequest},
		{"PATCH", "/api/materials/cell", map[string]any{}, http.StatusBadRequest},
		{"GET", "/api/users/roles", nil, http.StatusOK},
		{"GET", "/api/agent/search", nil, http.StatusBadRequest},
		{"POST", "/api/assistant/query", map[string]any{"prompt": "total ?"}, http.StatusServiceUnavailable},
		{"GET", "/api/assistant/preview/nope", nil, http.StatusNotFound},
		{"POST", "/api/assistant/confirm-action", map[string]any{"action_id": "nope"}, http.StatusNotFound},
		{"DELETE", "/api/materials", nil, http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := testutil.MakeRequest(tc.method, tc.path, tc.body, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			testutil.AssertStatus(t, w, tc.expected)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := newTestRouter(t, nil)

	// generate one request so the counter has a series
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/users/roles", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	body := w.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",route="GET /api/users/roles",status="200"} 1`) {
		t.Errorf("Expected request counter in metrics output, got:\n%s", body)
	}
}

func TestRouteExistence(t *testing.T) {
	s := store.NewPostgresStore(testutil.SetupTestDB(t))
	mux := newTestRouter(t, s)

	// Routes must reach a handler; 404 from a handler is fine, 405 is not
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/api/materials"},
		{"GET", "/api/edit-history"},
		{"GET", "/api/projects"},
		{"GET", "/api/projects/p1"},
		{"PATCH", "/api/projects/p1"},
		{"DELETE", "/api/projects/p1"},
		{"GET", "/api/workers"},
		{"GET", "/api/workers/w1"},
		{"DELETE", "/api/workers/w1"},
		{"GET", "/api/users"},
		{"GET", "/api/users/u1"},
		{"DELETE", "/api/users/u1"},
		{"GET", "/api/agent/items-needing-validation?role=client"},
		{"GET", "/api/agent/todo-items?role=contractor"},
		{"GET", "/api/agent/pricing-summary"},
		{"GET", "/api/agent/sections/kitchen/items"},
		{"GET", "/api/agent/search?q=robinet"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed || w.Code == http.StatusInternalServerError {
				t.Errorf("Route %s %s returned %d. Body: %s", tc.method, tc.path, w.Code, w.Body.String())
			}
		})
	}
}
