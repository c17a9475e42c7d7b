// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/models"
)

const testSecret = "test-secret-key"

type fakeUsers map[string]models.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (models.User, error) {
	u, ok := f[id]
	if !ok {
		return models.User{}, fmt.Errorf("failed to query user: %w", sql.ErrNoRows)
	}
	return u, nil
}

func captureUser(got *models.User, ok *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *ok = UserFromContext(r.Context())
	})
}

// sessionCookies logs userID in and returns the resulting cookies
func sessionCookies(t *testing.T, sess *Sessions, userID string) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	if err := sess.Login(w, httptest.NewRequest("POST", "/accounts/login/", nil), userID, ""); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return w.Result().Cookies()
}

func TestWithUser(t *testing.T) {
	sess := NewSessions(testSecret, false)
	users := fakeUsers{"u1": {ID: "u1", Username: "tony"}}

	validToken, _, err := auth.SignToken("u1", "tony", testSecret, time.Now(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ghostToken, _, _ := auth.SignToken("ghost", "ghost", testSecret, time.Now(), time.Hour)
	foreignToken, _, _ := auth.SignToken("u1", "tony", "other-secret", time.Now(), time.Hour)

	testCases := []struct {
		name     string
		setup    func(r *http.Request)
		wantUser string
	}{
		{"anonymous", func(r *http.Request) {}, ""},
		{"valid bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+validToken) }, "u1"},
		{"bearer for deleted user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ghostToken) }, ""},
		{"bearer signed with another secret", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreignToken) }, ""},
		{"session cookie", func(r *http.Request) {
			for _, c := range sessionCookies(t, sess, "u1") {
				r.AddCookie(c)
			}
		}, "u1"},
		{"tampered cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: sessionName, Value: "garbage"})
		}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got models.User
			var ok bool
			handler := WithUser(sess, users, testSecret)(captureUser(&got, &ok))

			req := httptest.NewRequest("GET", "/polls/", nil)
			tc.setup(req)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if ok != (tc.wantUser != "") {
				t.Fatalf("resolved = %v, want user %q", ok, tc.wantUser)
			}
			if ok && got.ID != tc.wantUser {
				t.Errorf("Expected user %q, got %q", tc.wantUser, got.ID)
			}
		})
	}
}

func TestRequireLogin(t *testing.T) {
	called := false
	handler := RequireLogin(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous GET", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/polls/q1/", nil))

		if w.Code != http.StatusFound || called {
			t.Fatalf("Expected redirect without calling handler, got %d", w.Code)
		}
		want := LoginPath + "?next=" + url.QueryEscape("/polls/q1/")
		if loc := w.Header().Get("Location"); loc != want {
			t.Errorf("Expected %q, got %q", want, loc)
		}
	})

	t.Run("anonymous POST returns to referer", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("POST", "/polls/q1/vote/", nil)
		req.Header.Set("Referer", "http://example.com/polls/q1/")
		w := httptest.NewRecorder()
		handler(w, req)

		want := LoginPath + "?next=" + url.QueryEscape("/polls/q1/")
		if loc := w.Header().Get("Location"); loc != want || called {
			t.Errorf("Expected %q, got %q", want, loc)
		}
	})

	t.Run("logged in", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("POST", "/polls/q1/vote/", nil)
		req = req.WithContext(ContextWithUser(req.Context(), models.User{ID: "u1", Username: "tony"}))
		w := httptest.NewRecorder()
		handler(w, req)

		if !called || w.Code != http.StatusOK {
			t.Errorf("Expected handler to run, got %d", w.Code)
		}
	})
}

func TestRequireAPIUser(t *testing.T) {
	handler := RequireAPIUser(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/api/questions/q1/vote", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest("POST", "/api/questions/q1/vote", nil)
	req = req.WithContext(ContextWithUser(req.Context(), models.User{ID: "u1"}))
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestRequireAdminKey(t *testing.T) {
	handler := RequireAdminKey("s3cret")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name     string
		key      string
		expected int
	}{
		{"missing key", "", http.StatusForbidden},
		{"wrong key", "guess", http.StatusForbidden},
		{"correct key", "s3cret", http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/admin/questions", nil)
			if tc.key != "" {
				req.Header.Set("X-Admin-Key", tc.key)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, w.Code)
			}
		})
	}
}

func TestSafeNext(t *testing.T) {
	testCases := []struct {
		next     string
		expected string
	}{
		{"/polls/abc/", "/polls/abc/"},
		{"", "/polls/"},
		{"https://evil.example/", "/polls/"},
		{"//evil.example/", "/polls/"},
		{`/\evil.example`, "/polls/"},
		{"polls/", "/polls/"},
	}

	for _, tc := range testCases {
		if got := SafeNext(tc.next, "/polls/"); got != tc.expected {
			t.Errorf("SafeNext(%q) = %q, want %q", tc.next, got, tc.expected)
		}
	}
}

func TestSessionFlashes(t *testing.T) {
	sess := NewSessions(testSecret, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/polls/q1/", nil)
	sess.AddFlash(w, req, "Poll does not exist.")
	cookies := w.Result().Cookies()

	// First read pops the flash
	req = httptest.NewRequest("GET", "/polls/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	got := sess.Flashes(w, req)
	if !reflect.DeepEqual(got, []string{"Poll does not exist."}) {
		t.Fatalf("Flashes() = %v", got)
	}

	// The rewritten cookie carries no flashes
	req = httptest.NewRequest("GET", "/polls/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	if again := sess.Flashes(httptest.NewRecorder(), req); len(again) != 0 {
		t.Errorf("Expected flashes to be consumed, got %v", again)
	}
}

func TestSessionLogout(t *testing.T) {
	sess := NewSessions(testSecret, false)

	req := httptest.NewRequest("POST", "/accounts/logout/", nil)
	for _, c := range sessionCookies(t, sess, "u1") {
		req.AddCookie(c)
	}
	if sess.UserID(req) != "u1" {
		t.Fatal("Expected logged-in session")
	}

	w := httptest.NewRecorder()
	if err := sess.Logout(w, req, "You have been logged out."); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	next := httptest.NewRequest("GET", "/polls/", nil)
	for _, c := range w.Result().Cookies() {
		next.AddCookie(c)
	}
	if id := sess.UserID(next); id != "" {
		t.Errorf("Expected anonymous session after logout, got %q", id)
	}
}
