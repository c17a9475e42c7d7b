// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName   = "kupolls_session"
	sessionUserID = "user_id"
	sessionMaxAge = 14 * 24 * 60 * 60 // two weeks, in seconds
)

// Sessions keeps the logged-in user and flash notices in a signed cookie
type Sessions struct {
	store sessions.Store
}

func NewSessions(secret string, secure bool) *Sessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// get never fails: a tampered or stale cookie yields a fresh session
func (s *Sessions) get(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		slog.Debug("discarding unreadable session cookie", "error", err)
	}
	return session
}

// UserID returns the logged-in user's id, or "" for anonymous requests
func (s *Sessions) UserID(r *http.Request) string {
	id, _ := s.get(r).Values[sessionUserID].(string)
	return id
}

// Login stores userID in the session, optionally queueing a flash
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID, flash string) error {
	session := s.get(r)
	session.Values[sessionUserID] = userID
	if flash != "" {
		session.AddFlash(flash)
	}
	return session.Save(r, w)
}

// Logout clears the user, optionally queueing a flash
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request, flash string) error {
	session := s.get(r)
	delete(session.Values, sessionUserID)
	if flash != "" {
		session.AddFlash(flash)
	}
	return session.Save(r, w)
}

// AddFlash queues a notice for the next rendered page
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, message string) {
	session := s.get(r)
	session.AddFlash(message)
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to save flash", "error", err)
	}
}

// Flashes pops all queued notices
func (s *Sessions) Flashes(w http.ResponseWriter, r *http.Request) []string {
	session := s.get(r)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to clear flashes", "error", err)
	}

	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}
