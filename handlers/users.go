// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/models"
	"github.com/danielhkuo/chantier/store"
)

type UserHandler struct {
	store *store.PostgresStore
}

func NewUserHandler(s *store.PostgresStore) *UserHandler {
	return &UserHandler{store: s}
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err, "list users")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.UsersResponse{Users: orEmpty(users)})
}

// ListRoles handles GET /api/users/roles
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.RolesResponse{Roles: models.UserRoles})
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get user")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, u)
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password is required")
		return
	}

	u, err := h.store.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err, "create user")
		return
	}

	slog.Info("user created", "user_id", u.ID, "role", u.Role)

	middleware.JSONResponse(w, http.StatusCreated, u)
}

// UpdateUser handles PATCH /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	u, err := h.store.UpdateUser(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err, "update user")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err, "delete user")
		return
	}

	slog.Info("user deleted", "user_id", id)

	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{
		Message: "User deleted",
		Status:  "ok",
	})
}

// Login handles POST /api/users/login. It checks credentials only; no
// session is issued.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err, "log in")
		return
	}

	slog.Info("user logged in", "user_id", u.ID)

	middleware.JSONResponse(w, http.StatusOK, u)
}
