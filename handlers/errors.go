// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/agent"
	"github.com/danielhkuo/chantier/auth"
	"github.com/danielhkuo/chantier/middleware"
	"github.com/danielhkuo/chantier/store"
)

// writeError maps store and auth errors onto HTTP statuses. Anything it
// does not recognise is logged and reported as "Failed to <action>".
func writeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrInvalid):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, actions.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict), errors.Is(err, agent.ErrInProgress):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrRoleNotPermitted):
		middleware.ErrorResponse(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidPassword):
		middleware.ErrorResponse(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("failed to "+action, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
