// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request IDs and Logging

WithRequestID tags each request with an X-Request-ID; WithLogging logs
request start and completion with status, duration and the id:

	mux.HandleFunc("GET /polls/{$}", middleware.WithLogging(handler))

# Users

Sessions keeps the logged-in user id and flash notices in a signed cookie
(gorilla/sessions). WithUser resolves the caller from an Authorization
bearer token or the session cookie:

	handler = middleware.WithUser(sess, store, cfg.SecretKey)(mux)
	user, ok := middleware.UserFromContext(r.Context())

# Guards

	middleware.RequireLogin(h)              // HTML: redirect to /accounts/login/?next=...
	middleware.RequireAPIUser(h)            // JSON: 401
	middleware.RequireAdminKey(cfg.AdminKey)(h) // JSON: 403 without X-Admin-Key

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

# CORS and Client IP

CORS is applied to the /api routes without allowing credentials, so
cross-origin callers use bearer tokens. GetClientIP returns the last
X-Forwarded-For entry, then X-Real-IP, then RemoteAddr; audit entries use it.
*/
package middleware
