// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package seed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/polls"
	"github.com/danielhkuo/ku-polls/testutil"
)

const fixtureYAML = `
users:
  - username: tony
    password: abcdef
    first_name: Chopper
    last_name: Tony Tony
questions:
  - text: What's up?
    pub_date: 2026-01-01T00:00:00Z
    end_date: 2026-01-08T00:00:00Z
    choices: [Not much, The sky]
  - text: Recent question
    published_ago: 2h
    open_for: 48h
    choices: [Yes, No, Maybe]
  - text: Default window
    choices: [A]
`

func TestLoadFile(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	store := db.NewStore(conn, db.TypeSQLite)
	svc := polls.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(fixtureYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := LoadFile(ctx, path, store, svc, now)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if res.UsersCreated != 1 || res.QuestionsCreated != 3 {
		t.Errorf("first load result = %+v, want 1 user and 3 questions", res)
	}

	user, err := store.GetUserByUsername(ctx, "tony")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, "abcdef"); err != nil {
		t.Errorf("seeded password does not verify: %v", err)
	}
	if user.DisplayName() != "Chopper Tony Tony" {
		t.Errorf("DisplayName() = %q", user.DisplayName())
	}

	published, err := store.ListPublished(ctx, now)
	if err != nil {
		t.Fatalf("ListPublished() error = %v", err)
	}
	if len(published) != 3 {
		t.Fatalf("Expected 3 published questions, got %d", len(published))
	}
	byText := map[string]int{}
	for i, q := range published {
		byText[q.Text] = i
	}
	recent := published[byText["Recent question"]]
	if !recent.PubDate.Equal(now.Add(-2*time.Hour)) || !recent.EndDate.Equal(now.Add(46*time.Hour)) {
		t.Errorf("Recent question window = [%v, %v]", recent.PubDate, recent.EndDate)
	}
	def := published[byText["Default window"]]
	if !def.EndDate.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("Default window end = %v, want now + 24h", def.EndDate)
	}

	// Second load is a no-op
	res, err = LoadFile(ctx, path, store, svc, now)
	if err != nil {
		t.Fatalf("second LoadFile() error = %v", err)
	}
	if res.UsersCreated != 0 || res.QuestionsCreated != 0 || res.UsersSkipped != 1 || res.QuestionsSkipped != 3 {
		t.Errorf("second load result = %+v, want everything skipped", res)
	}
}

func TestApplyMatchesTrimmedText(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	store := db.NewStore(conn, db.TypeSQLite)
	svc := polls.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		questions   []QuestionFixture
		wantCreated int
		wantSkipped int
	}{
		{"padded text", []QuestionFixture{{Text: "  Padded question  ", Choices: []string{"A"}}}, 1, 0},
		{"padded text again", []QuestionFixture{{Text: "  Padded question  ", Choices: []string{"A"}}}, 0, 1},
		{"same text without padding", []QuestionFixture{{Text: "Padded question", Choices: []string{"A"}}}, 0, 1},
		{"duplicates within one fixture", []QuestionFixture{
			{Text: "Another one", Choices: []string{"A"}},
			{Text: "Another one\n", Choices: []string{"A"}},
		}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Apply(ctx, Fixture{Questions: tt.questions}, store, svc, now)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if res.QuestionsCreated != tt.wantCreated || res.QuestionsSkipped != tt.wantSkipped {
				t.Errorf("Apply() = %+v, want %d created and %d skipped", res, tt.wantCreated, tt.wantSkipped)
			}
		})
	}

	texts, err := store.QuestionTexts(ctx)
	if err != nil {
		t.Fatalf("QuestionTexts() error = %v", err)
	}
	if len(texts) != 2 {
		t.Errorf("Expected 2 stored questions, got %v", texts)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"empty document", "", false},
		{"unknown key", "questions:\n  - text: q\n    colour: red\n", true},
		{"bad time", "questions:\n  - text: q\n    pub_date: yesterday\n", true},
		{"valid", fixtureYAML, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuestionFixtureConflicts(t *testing.T) {
	now := time.Now()
	pub := now.Add(-time.Hour)

	tests := []struct {
		name string
		q    QuestionFixture
	}{
		{"pub_date and published_ago", QuestionFixture{Text: "q", PubDate: &pub, PublishedAgo: "1h"}},
		{"end_date and open_for", QuestionFixture{Text: "q", EndDate: &pub, OpenFor: "1h"}},
		{"bad duration", QuestionFixture{Text: "q", PublishedAgo: "a while"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.q.request(now); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
