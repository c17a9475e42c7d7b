// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/models"
)

// TestDBURL is an in-memory SQLite database; each SetupTestDB call gets a fresh one
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  TestDBURL,
		DatabaseType: db.TypeSQLite,
		SecretKey:    "test-secret-key",
		AdminKey:     "test-admin-key",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// DaysFromNow returns now shifted by days (negative for the past)
func DaysFromNow(days float64) time.Time {
	return time.Now().UTC().Add(time.Duration(days * float64(24*time.Hour)))
}

// CreateTestQuestion inserts a question with the given window and returns its ID
func CreateTestQuestion(t *testing.T, conn *sql.DB, text string, pubDate, endDate time.Time) string {
	t.Helper()

	questionID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO question (id, question_text, pub_date, end_date)
		VALUES ($1, $2, $3, $4)
	`, questionID, text, pubDate.UTC(), endDate.UTC())
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	return questionID
}

// CreateOpenQuestion creates a question published a day ago that closes in a day
func CreateOpenQuestion(t *testing.T, conn *sql.DB, text string) string {
	t.Helper()
	return CreateTestQuestion(t, conn, text, DaysFromNow(-1), DaysFromNow(1))
}

// AddTestChoice adds a choice to a question and returns the choice ID
func AddTestChoice(t *testing.T, conn *sql.DB, questionID, text string) string {
	t.Helper()

	choiceID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO choice (id, question_id, choice_text, votes, position)
		SELECT $1, $2, $3, 0, COALESCE(MAX(position) + 1, 0)
		FROM choice
		WHERE question_id = $2
	`, choiceID, questionID, text)
	if err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}

	return choiceID
}

// CreateTestUser creates a user with a bcrypt-hashed password
func CreateTestUser(t *testing.T, conn *sql.DB, username, password string) models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user, err := db.NewStore(conn, db.TypeSQLite).CreateUser(context.Background(), models.User{
		Username:     username,
		PasswordHash: hash,
		FirstName:    "Chopper",
		LastName:     "Tony Tony",
	})
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// CastTestVote records a vote through the store and recounts tallies
func CastTestVote(t *testing.T, conn *sql.DB, questionID, choiceID, userID string) {
	t.Helper()

	_, _, err := db.NewStore(conn, db.TypeSQLite).RecordVote(context.Background(), questionID, choiceID, userID, time.Now())
	if err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
}

// CountVoteRows returns the number of vote rows for a question
func CountVoteRows(t *testing.T, conn *sql.DB, questionID string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE question_id = $1`, questionID).Scan(&n); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// ChoiceTally returns the cached vote count of a choice
func ChoiceTally(t *testing.T, conn *sql.DB, choiceID string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT votes FROM choice WHERE id = $1`, choiceID).Scan(&n); err != nil {
		t.Fatalf("Failed to read choice tally: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// BearerHeader signs a token for user and returns it as request headers
func BearerHeader(t *testing.T, cfg cliparse.Config, user models.User) map[string]string {
	t.Helper()

	tok, _, err := auth.SignToken(user.ID, user.Username, cfg.SecretKey, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
