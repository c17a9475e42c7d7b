// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/models"
)

// LoginPath is where anonymous users are sent to log in
const LoginPath = "/accounts/login/"

// UserLookup resolves a user id to a user
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// WithUser resolves the caller from an Authorization bearer token or, failing
// that, the session cookie, and stores the user in the request context.
// Unresolvable callers continue as anonymous.
func WithUser(sess *Sessions, users UserLookup, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				claims, err := auth.ParseToken(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), secret)
				if err != nil {
					slog.Debug("rejected bearer token", "error", err)
				} else {
					userID = claims.UID
				}
			} else {
				userID = sess.UserID(r)
			}

			if userID != "" {
				user, err := users.GetUserByID(r.Context(), userID)
				switch {
				case err == nil:
					r = r.WithContext(ContextWithUser(r.Context(), user))
				case errors.Is(err, sql.ErrNoRows):
					// Deleted user with a live session or token
				default:
					slog.Error("failed to load user", "error", err, "user_id", userID)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the resolved user; ok is false for anonymous requests
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok && !user.Anonymous()
}

// ContextWithUser attaches user to ctx
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// RequireLogin redirects anonymous users to the login page, returning them
// to the current page afterwards. POSTs return to the referring page.
func RequireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			target := r.URL.RequestURI()
			if r.Method != http.MethodGet {
				target = SafeNext(refererPath(r), "/polls/")
			}
			http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(target), http.StatusFound)
			return
		}
		next(w, r)
	}
}

// RequireAPIUser rejects anonymous API calls with 401
func RequireAPIUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ku-polls"`)
			ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, r)
	}
}

// RequireAdminKey rejects requests without a valid X-Admin-Key header
func RequireAdminKey(adminKey string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), adminKey); err != nil {
				slog.Warn("admin key rejected", "path", r.URL.Path, "client_ip", GetClientIP(r))
				ErrorResponse(w, http.StatusForbidden, "Invalid admin key")
				return
			}
			next(w, r)
		}
	}
}

// SafeNext accepts only local absolute paths as redirect targets
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || (ref.Host != "" && ref.Host != r.Host) {
		return ""
	}
	return ref.RequestURI()
}
