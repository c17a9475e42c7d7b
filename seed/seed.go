// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package seed loads users and questions from a YAML fixture file.
//
// A fixture looks like:
//
//	users:
//	  - username: tony
//	    password: abcdef
//	    first_name: Chopper
//	    last_name: Tony Tony
//	questions:
//	  - text: What's up?
//	    pub_date: 2026-01-01T00:00:00Z
//	    end_date: 2026-01-08T00:00:00Z
//	    choices: [Not much, The sky]
//	  - text: Published two hours ago, open for a day
//	    published_ago: 2h
//	    choices: [Yes, No]
//
// Loading is idempotent: users whose username exists and questions whose text
// exists are skipped.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/polls"
)

// Fixture is the top-level document
type Fixture struct {
	Users     []UserFixture     `yaml:"users"`
	Questions []QuestionFixture `yaml:"questions"`
}

type UserFixture struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// QuestionFixture sets the window either absolutely (pub_date/end_date) or
// relative to load time (published_ago/open_for).
type QuestionFixture struct {
	Text         string     `yaml:"text"`
	PubDate      *time.Time `yaml:"pub_date"`
	EndDate      *time.Time `yaml:"end_date"`
	PublishedAgo string     `yaml:"published_ago"`
	OpenFor      string     `yaml:"open_for"`
	Choices      []string   `yaml:"choices"`
}

// Result counts what a load created
type Result struct {
	UsersCreated     int
	UsersSkipped     int
	QuestionsCreated int
	QuestionsSkipped int
}

// Parse decodes a fixture, rejecting unknown keys
func Parse(data []byte) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil // empty document
		}
		return f, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return f, nil
}

// LoadFile reads and applies the fixture at path
func LoadFile(ctx context.Context, path string, store *db.Store, svc *polls.Service, now time.Time) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return Result{}, err
	}
	return Apply(ctx, f, store, svc, now)
}

// Apply creates the fixture's users and questions
func Apply(ctx context.Context, f Fixture, store *db.Store, svc *polls.Service, now time.Time) (Result, error) {
	var res Result

	for _, u := range f.Users {
		if u.Username == "" || u.Password == "" {
			return res, fmt.Errorf("user fixture needs username and password")
		}
		_, err := store.GetUserByUsername(ctx, u.Username)
		if err == nil {
			res.UsersSkipped++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return res, err
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return res, err
		}
		if _, err := store.CreateUser(ctx, models.User{
			Username:     u.Username,
			PasswordHash: hash,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
		}); err != nil {
			return res, err
		}
		res.UsersCreated++
	}

	existing, err := existingQuestionTexts(ctx, store)
	if err != nil {
		return res, err
	}

	for _, q := range f.Questions {
		// Stored text is trimmed
		text := strings.TrimSpace(q.Text)
		if existing[text] {
			res.QuestionsSkipped++
			continue
		}

		req, err := q.request(now)
		if err != nil {
			return res, fmt.Errorf("question %q: %w", q.Text, err)
		}
		if _, err := svc.CreateQuestion(ctx, req, now); err != nil {
			return res, fmt.Errorf("question %q: %w", q.Text, err)
		}
		existing[text] = true
		res.QuestionsCreated++
	}

	return res, nil
}

func (q QuestionFixture) request(now time.Time) (models.CreateQuestionRequest, error) {
	req := models.CreateQuestionRequest{
		Text:    q.Text,
		PubDate: q.PubDate,
		EndDate: q.EndDate,
		Choices: q.Choices,
	}

	if q.PublishedAgo != "" {
		if q.PubDate != nil {
			return req, errors.New("set pub_date or published_ago, not both")
		}
		ago, err := time.ParseDuration(q.PublishedAgo)
		if err != nil {
			return req, fmt.Errorf("invalid published_ago: %w", err)
		}
		pub := now.Add(-ago)
		req.PubDate = &pub
	}

	if q.OpenFor != "" {
		if q.EndDate != nil {
			return req, errors.New("set end_date or open_for, not both")
		}
		d, err := time.ParseDuration(q.OpenFor)
		if err != nil {
			return req, fmt.Errorf("invalid open_for: %w", err)
		}
		pub := now
		if req.PubDate != nil {
			pub = *req.PubDate
		}
		end := pub.Add(d)
		req.EndDate = &end
	}

	return req, nil
}

// existingQuestionTexts includes unpublished questions
func existingQuestionTexts(ctx context.Context, store *db.Store) (map[string]bool, error) {
	texts, err := store.QuestionTexts(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]bool, len(texts))
	for _, t := range texts {
		m[t] = true
	}
	return m, nil
}
