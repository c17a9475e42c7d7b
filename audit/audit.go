// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package audit records who voted and who logged in.
//
// Entries are structured log records written through a dedicated
// *slog.Logger, tagged audit=true so they can be routed apart from request
// logs. Nothing in the application reads them back.
package audit

import (
	"log/slog"
	"time"
)

// Logger writes audit entries
type Logger struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log.With("audit", true)}
}

// VoteCast records a successful vote
func (a *Logger) VoteCast(username, questionID string, at time.Time) {
	a.log.Info("vote cast",
		"user", username,
		"question_id", questionID,
		"timestamp", at.UTC(),
	)
}

// LoginSucceeded records a successful login
func (a *Logger) LoginSucceeded(username, clientIP string, at time.Time) {
	a.log.Info("login",
		"username", username,
		"client_ip", clientIP,
		"timestamp", at.UTC(),
	)
}

// LoginFailed records a rejected login attempt
func (a *Logger) LoginFailed(username, clientIP string, at time.Time) {
	a.log.Warn("login failed",
		"username", username,
		"client_ip", clientIP,
		"timestamp", at.UTC(),
	)
}

// LoggedOut records a logout
func (a *Logger) LoggedOut(username, clientIP string, at time.Time) {
	a.log.Info("logout",
		"username", username,
		"client_ip", clientIP,
		"timestamp", at.UTC(),
	)
}
