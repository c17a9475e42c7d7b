// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ku-polls/audit"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/handlers"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/polls"
)

func NewRouter(conn *sql.DB, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()
	log := slog.Default()

	// Core wiring
	store := db.NewStore(conn, cfg.DatabaseType)
	auditLog := audit.New(log)
	svc := polls.NewService(store, log, auditLog)
	sess := middleware.NewSessions(cfg.SecretKey, cfg.SecureCookies)
	pages := handlers.MustLoadPages()

	// Initialize handlers
	pageHandler := handlers.NewPageHandler(svc, sess, pages)
	accountHandler := handlers.NewAccountHandler(store, sess, pages, auditLog, cfg.SecretKey)
	questionHandler := handlers.NewQuestionHandler(svc)

	admin := middleware.RequireAdminKey(cfg.AdminKey)
	api := func(h http.HandlerFunc) http.Handler {
		return middleware.CORS(middleware.WithLogging(h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll pages
	mux.HandleFunc("GET /{$}", pageHandler.Root)
	mux.HandleFunc("GET /polls/{$}", middleware.WithLogging(pageHandler.Index))
	mux.HandleFunc("GET /polls/{id}/{$}", middleware.WithLogging(pageHandler.Detail))
	mux.HandleFunc("POST /polls/{id}/vote/{$}", middleware.WithLogging(middleware.RequireLogin(pageHandler.Vote)))
	mux.HandleFunc("GET /polls/{id}/results/{$}", middleware.WithLogging(pageHandler.Results))

	// Accounts
	mux.HandleFunc("GET /accounts/login/{$}", middleware.WithLogging(accountHandler.LoginForm))
	mux.HandleFunc("POST /accounts/login/{$}", middleware.WithLogging(accountHandler.Login))
	mux.HandleFunc("POST /accounts/logout/{$}", middleware.WithLogging(accountHandler.Logout))

	// JSON API (public reads)
	mux.Handle("GET /api/questions", api(questionHandler.ListQuestions))
	mux.Handle("GET /api/questions/{id}", api(questionHandler.GetQuestion))
	mux.Handle("GET /api/questions/{id}/results", api(questionHandler.GetResults))
	mux.Handle("POST /api/login", api(accountHandler.APILogin))

	// JSON API (bearer token)
	mux.Handle("POST /api/questions/{id}/vote", api(middleware.RequireAPIUser(questionHandler.Vote)))
	mux.Handle("GET /api/questions/{id}/my-vote", api(middleware.RequireAPIUser(questionHandler.MyVote)))

	// JSON API (admin, requires X-Admin-Key)
	mux.Handle("POST /api/admin/questions", api(admin(questionHandler.CreateQuestion)))
	mux.Handle("POST /api/admin/questions/{id}/choices", api(admin(questionHandler.AddChoice)))
	mux.Handle("DELETE /api/admin/questions/{id}", api(admin(questionHandler.DeleteQuestion)))
	mux.Handle("POST /api/admin/users", api(admin(accountHandler.CreateUser)))

	// CORS preflight
	mux.Handle("OPTIONS /api/", middleware.CORS(http.NotFoundHandler()))

	return middleware.WithRequestID(middleware.WithUser(sess, store, cfg.SecretKey)(mux))
}
