// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/polls"
	"github.com/danielhkuo/ku-polls/testutil"
)

// testEnv bundles the dependencies every handler test needs
type testEnv struct {
	conn    *sql.DB
	store   *db.Store
	svc     *polls.Service
	sess    *middleware.Sessions
	pages   *Pages
	auditor *recordingAuditor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	t.Cleanup(func() { conn.Close() })

	cfg := testutil.GetTestConfig()
	store := db.NewStore(conn, db.TypeSQLite)
	auditor := &recordingAuditor{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	pages, err := LoadPages()
	if err != nil {
		t.Fatalf("LoadPages() error = %v", err)
	}

	return &testEnv{
		conn:    conn,
		store:   store,
		svc:     polls.NewService(store, log, auditor),
		sess:    middleware.NewSessions(cfg.SecretKey, false),
		pages:   pages,
		auditor: auditor,
	}
}

type auditEntry struct {
	kind     string
	username string
	subject  string
}

// recordingAuditor implements both polls.VoteAuditor and AccountAuditor
type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAuditor) add(kind, username, subject string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{kind: kind, username: username, subject: subject})
}

func (a *recordingAuditor) VoteCast(username, questionID string, _ time.Time) {
	a.add("vote", username, questionID)
}

func (a *recordingAuditor) LoginSucceeded(username, clientIP string, _ time.Time) {
	a.add("login", username, clientIP)
}

func (a *recordingAuditor) LoginFailed(username, clientIP string, _ time.Time) {
	a.add("login_failed", username, clientIP)
}

func (a *recordingAuditor) LoggedOut(username, clientIP string, _ time.Time) {
	a.add("logout", username, clientIP)
}

func (a *recordingAuditor) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	kinds := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		kinds = append(kinds, e.kind)
	}
	return kinds
}

// asUser attaches user to the request as WithUser would
func asUser(req *http.Request, user models.User) *http.Request {
	return req.WithContext(middleware.ContextWithUser(req.Context(), user))
}

// formRequest builds a url-encoded POST
func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withCookies copies the cookies set on w onto req
func withCookies(req *http.Request, w *httptest.ResponseRecorder) *http.Request {
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	testutil.AssertStatus(t, w, http.StatusFound)
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Expected redirect to %q, got %q", location, got)
	}
}
