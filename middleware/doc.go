// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).

# Metrics

HTTPMetrics counts requests and observes latency per route pattern:

	m := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)
	mux.HandleFunc(pattern, m.Instrument(pattern, handler))

# CORS Middleware

Enable cross-origin requests from the configured frontend origins:

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigins)(mux),
	}

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Handles X-Forwarded-For and X-Real-IP; used in request logs.
*/
package middleware
