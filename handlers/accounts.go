// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
)

const (
	errorBadLogin  = "Please enter a correct username and password."
	flashLoggedIn  = "You are logged in."
	flashLoggedOut = "You have been logged out."
)

// UserStore is the user persistence the account handlers need
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// AccountAuditor records login and logout events
type AccountAuditor interface {
	LoginSucceeded(username, clientIP string, at time.Time)
	LoginFailed(username, clientIP string, at time.Time)
	LoggedOut(username, clientIP string, at time.Time)
}

// AccountHandler serves login, logout and user management
type AccountHandler struct {
	users   UserStore
	sess    *middleware.Sessions
	pages   *Pages
	auditor AccountAuditor
	secret  string
	now     func() time.Time
}

func NewAccountHandler(users UserStore, sess *middleware.Sessions, pages *Pages, auditor AccountAuditor, secret string) *AccountHandler {
	return &AccountHandler{
		users:   users,
		sess:    sess,
		pages:   pages,
		auditor: auditor,
		secret:  secret,
		now:     time.Now,
	}
}

type loginPage struct {
	pageData
	Next     string
	Username string
	Error    string
}

// LoginForm handles GET /accounts/login/
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, http.StatusOK, "login", loginPage{
		pageData: commonData(h.sess, w, r),
		Next:     middleware.SafeNext(r.URL.Query().Get("next"), "/polls/"),
	})
}

// Login handles POST /accounts/login/
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	next := middleware.SafeNext(r.PostFormValue("next"), "/polls/")

	user, err := h.authenticate(r, username, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Error("login failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		h.pages.render(w, http.StatusOK, "login", loginPage{
			pageData: commonData(h.sess, w, r),
			Next:     next,
			Username: username,
			Error:    errorBadLogin,
		})
		return
	}

	if err := h.sess.Login(w, r, user.ID, flashLoggedIn); err != nil {
		slog.Error("failed to save session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout handles POST /accounts/logout/
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		h.auditor.LoggedOut(user.Username, middleware.GetClientIP(r), h.now())
	}

	if err := h.sess.Logout(w, r, flashLoggedOut); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/polls/", http.StatusFound)
}

// APILogin handles POST /api/login
func (h *AccountHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := h.authenticate(r, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		slog.Error("login failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Login failed")
		return
	}

	token, expiresAt, err := auth.SignToken(user.ID, user.Username, h.secret, h.now(), auth.TokenTTL)
	if err != nil {
		slog.Error("failed to sign token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Login failed")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// CreateUser handles POST /api/admin/users
func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < 6 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user, err := h.users.CreateUser(r.Context(), models.User{
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
	})
	if errors.Is(err, db.ErrDuplicate) {
		middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username)
	middleware.JSONResponse(w, http.StatusCreated, user)
}

// authenticate checks credentials and writes the matching audit entry
func (h *AccountHandler) authenticate(r *http.Request, username, password string) (models.User, error) {
	ip := middleware.GetClientIP(r)

	user, err := h.users.GetUserByUsername(r.Context(), username)
	if errors.Is(err, sql.ErrNoRows) {
		h.auditor.LoginFailed(username, ip, h.now())
		return models.User{}, auth.RejectPassword(password)
	}
	if err != nil {
		return models.User{}, err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		h.auditor.LoginFailed(username, ip, h.now())
		return models.User{}, err
	}

	h.auditor.LoginSucceeded(user.Username, ip, h.now())
	return user, nil
}
