// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/testutil"
)

func TestProjectHandler_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	handler := NewProjectHandler(s)

	// Create
	req := testutil.MakeRequest("POST", "/api/projects", map[string]any{
		"name":    "Maison Dupont",
		"address": "12 rue des Lilas",
		"status":  "active",
	}, nil)
	w := httptest.NewRecorder()
	handler.CreateProject(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var created models.Project
	testutil.AssertJSON(t, w, &created)
	if !strings.HasPrefix(created.ID, "project-") {
		t.Errorf("Expected generated project id, got '%s'", created.ID)
	}

	// Create without a name
	req = testutil.MakeRequest("POST", "/api/projects", map[string]any{"status": "active"}, nil)
	w = httptest.NewRecorder()
	handler.CreateProject(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	// Invalid status is rejected by the store
	req = testutil.MakeRequest("POST", "/api/projects", map[string]any{"name": "X", "status": "paused"}, nil)
	w = httptest.NewRecorder()
	handler.CreateProject(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	// List
	req = httptest.NewRequest("GET", "/api/projects", nil)
	w = httptest.NewRecorder()
	handler.ListProjects(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var list models.ProjectsResponse
	testutil.AssertJSON(t, w, &list)
	if len(list.Projects) != 1 {
		t.Errorf("Expected 1 project, got %d", len(list.Projects))
	}

	// Partial update
	req = testutil.MakeRequest("PATCH", "/api/projects/"+created.ID, map[string]any{"percentagePaid": 30}, nil)
	req.SetPathValue("id", created.ID)
	w = httptest.NewRecorder()
	handler.UpdateProject(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var updated models.Project
	testutil.AssertJSON(t, w, &updated)
	if updated.PercentagePaid != 30 || updated.Name != "Maison Dupont" {
		t.Errorf("Unexpected update result %+v", updated)
	}

	// Get missing
	req = httptest.NewRequest("GET", "/api/projects/missing", nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	handler.GetProject(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	// Delete
	req = httptest.NewRequest("DELETE", "/api/projects/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	w = httptest.NewRecorder()
	handler.DeleteProject(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestProjectHandler_SystemProjectKept(t *testing.T) {
	s := newTestStore(t)
	handler := NewProjectHandler(s)

	req := testutil.MakeRequest("POST", "/api/projects", map[string]any{"id": "legacy-materials", "name": "Legacy"}, nil)
	w := httptest.NewRecorder()
	handler.CreateProject(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	req = httptest.NewRequest("DELETE", "/api/projects/legacy-materials", nil)
	req.SetPathValue("id", "legacy-materials")
	w = httptest.NewRecorder()
	handler.DeleteProject(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestWorkerHandler_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	handler := NewWorkerHandler(s)

	req := testutil.MakeRequest("POST", "/api/workers", map[string]any{
		"name": "Jean",
		"jobs": []map[string]any{{"chantierName": "Ailleurs", "startDate": "2025-03-01"}},
	}, nil)
	w := httptest.NewRecorder()
	handler.CreateWorker(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var worker models.Worker
	testutil.AssertJSON(t, w, &worker)
	if len(worker.Jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(worker.Jobs))
	}

	req = testutil.MakeRequest("PUT", "/api/workers/"+worker.ID, map[string]any{"name": "Jean", "jobs": []any{}}, nil)
	req.SetPathValue("id", worker.ID)
	w = httptest.NewRecorder()
	handler.UpdateWorker(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	testutil.AssertJSON(t, w, &worker)
	if len(worker.Jobs) != 0 {
		t.Errorf("Expected jobs replaced by an empty set, got %d", len(worker.Jobs))
	}

	req = httptest.NewRequest("DELETE", "/api/workers/"+worker.ID, nil)
	req.SetPathValue("id", worker.ID)
	w = httptest.NewRecorder()
	handler.DeleteWorker(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = httptest.NewRequest("GET", "/api/workers/"+worker.ID, nil)
	req.SetPathValue("id", worker.ID)
	w = httptest.NewRecorder()
	handler.GetWorker(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUserHandler_LoginFlow(t *testing.T) {
	s := newTestStore(t)
	handler := NewUserHandler(s)

	req := testutil.MakeRequest("POST", "/api/users", map[string]any{
		"email":    "Chef@Chantier.fr",
		"password": "s3cret",
		"role":     "admin",
	}, nil)
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	if strings.Contains(w.Body.String(), "password_hash") || strings.Contains(w.Body.String(), "s3cret") {
		t.Error("Expected password material to stay out of the response")
	}

	var u models.User
	testutil.AssertJSON(t, w, &u)

	testCases := []struct {
		name     string
		body     map[string]any
		expected int
	}{
		{"valid", map[string]any{"email": "chef@chantier.fr", "password": "s3cret"}, http.StatusOK},
		{"wrong password", map[string]any{"email": "chef@chantier.fr", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]any{"email": "x@chantier.fr", "password": "s3cret"}, http.StatusUnauthorized},
		{"missing password", map[string]any{"email": "chef@chantier.fr"}, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/users/login", tc.body, nil)
			w := httptest.NewRecorder()
			handler.Login(w, req)
			testutil.AssertStatus(t, w, tc.expected)
		})
	}

	// the only admin cannot be deleted
	req = httptest.NewRequest("DELETE", "/api/users/"+u.ID, nil)
	req.SetPathValue("id", u.ID)
	w = httptest.NewRecorder()
	handler.DeleteUser(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	// duplicate email
	req = testutil.MakeRequest("POST", "/api/users", map[string]any{
		"email": "chef@chantier.fr", "password": "x", "role": "client",
	}, nil)
	w = httptest.NewRecorder()
	handler.CreateUser(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestUserHandler_ListRoles(t *testing.T) {
	handler := NewUserHandler(nil)

	req := httptest.NewRequest("GET", "/api/users/roles", nil)
	w := httptest.NewRecorder()
	handler.ListRoles(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.RolesResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Roles) != 4 {
		t.Errorf("Expected 4 roles, got %v", resp.Roles)
	}
}
