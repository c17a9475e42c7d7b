// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/models"
)

// ErrDuplicate is returned when a write violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// Store reads and writes questions, choices, votes and users.
// Lookups that find nothing return an error wrapping sql.ErrNoRows.
type Store struct {
	db     *sql.DB
	dbType string
}

func NewStore(db *sql.DB, dbType string) *Store {
	return &Store{db: db, dbType: dbType}
}

// Questions

// CreateQuestion inserts q and its choices in one transaction.
func (s *Store) CreateQuestion(ctx context.Context, q models.Question, choices []string) (models.QuestionWithChoices, error) {
	var result models.QuestionWithChoices

	questionID, err := auth.GenerateID(16)
	if err != nil {
		return result, err
	}
	q.ID = questionID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO question (id, question_text, pub_date, end_date)
		VALUES ($1, $2, $3, $4)
	`, q.ID, q.Text, q.PubDate.UTC(), q.EndDate.UTC())
	if err != nil {
		return result, fmt.Errorf("failed to insert question: %w", err)
	}

	result.Question = q
	result.Choices = []models.Choice{}
	for i, text := range choices {
		choiceID, err := auth.GenerateID(12)
		if err != nil {
			return result, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO choice (id, question_id, choice_text, votes, position)
			VALUES ($1, $2, $3, 0, $4)
		`, choiceID, q.ID, text, i)
		if err != nil {
			return result, fmt.Errorf("failed to insert choice: %w", err)
		}
		result.Choices = append(result.Choices, models.Choice{
			ID:         choiceID,
			QuestionID: q.ID,
			Text:       text,
		})
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit question: %w", err)
	}

	return result, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (models.Question, error) {
	var q models.Question
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_text, pub_date, end_date
		FROM question
		WHERE id = $1
	`, id).Scan(&q.ID, &q.Text, &q.PubDate, &q.EndDate)
	if err != nil {
		return q, fmt.Errorf("failed to query question %s: %w", id, err)
	}

	q.PubDate = q.PubDate.UTC()
	q.EndDate = q.EndDate.UTC()
	return q, nil
}

// ListPublished returns questions with pub_date <= now, newest first.
func (s *Store) ListPublished(ctx context.Context, now time.Time) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_text, pub_date, end_date
		FROM question
		WHERE pub_date <= $1
		ORDER BY pub_date DESC
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.PubDate, &q.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.PubDate = q.PubDate.UTC()
		q.EndDate = q.EndDate.UTC()
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	return questions, nil
}

// QuestionTexts returns the text of every question, published or not.
func (s *Store) QuestionTexts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT question_text FROM question`)
	if err != nil {
		return nil, fmt.Errorf("failed to query question texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan question text: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// DeleteQuestion removes a question; its choices and votes cascade.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM question WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete question %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Choices

func (s *Store) ListChoices(ctx context.Context, questionID string) ([]models.Choice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, choice_text, votes
		FROM choice
		WHERE question_id = $1
		ORDER BY position, id
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query choices: %w", err)
	}
	defer rows.Close()

	choices := []models.Choice{}
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read choices: %w", err)
	}

	return choices, nil
}

// GetChoice looks up a choice scoped to its question.
func (s *Store) GetChoice(ctx context.Context, questionID, choiceID string) (models.Choice, error) {
	var c models.Choice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_id, choice_text, votes
		FROM choice
		WHERE id = $1 AND question_id = $2
	`, choiceID, questionID).Scan(&c.ID, &c.QuestionID, &c.Text, &c.Votes)
	if err != nil {
		return c, fmt.Errorf("failed to query choice %s: %w", choiceID, err)
	}
	return c, nil
}

// AddChoice appends a choice after the question's existing ones.
func (s *Store) AddChoice(ctx context.Context, questionID, text string) (models.Choice, error) {
	c := models.Choice{QuestionID: questionID, Text: text}

	choiceID, err := auth.GenerateID(12)
	if err != nil {
		return c, err
	}
	c.ID = choiceID

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO choice (id, question_id, choice_text, votes, position)
		SELECT $1, $2, $3, 0, COALESCE(MAX(position) + 1, 0)
		FROM choice
		WHERE question_id = $2
	`, c.ID, questionID, text)
	if err != nil {
		return c, fmt.Errorf("failed to insert choice: %w", err)
	}

	return c, nil
}

// Votes

// GetVote returns the user's current vote for the question.
func (s *Store) GetVote(ctx context.Context, questionID, userID string) (models.Vote, error) {
	var v models.Vote
	var uid sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_id, choice_id, user_id, created_at, updated_at
		FROM vote
		WHERE question_id = $1 AND user_id = $2
	`, questionID, userID).Scan(&v.ID, &v.QuestionID, &v.ChoiceID, &uid, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return v, fmt.Errorf("failed to query vote: %w", err)
	}
	if uid.Valid {
		v.UserID = &uid.String
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

// CountVotes counts the votes currently pointing at a choice.
func (s *Store) CountVotes(ctx context.Context, questionID, choiceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE question_id = $1 AND choice_id = $2
	`, questionID, choiceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// RecordVote upserts the user's vote and recounts every choice of the
// question in one transaction holding the question's lock. updated reports
// whether an earlier vote was replaced.
func (s *Store) RecordVote(ctx context.Context, questionID, choiceID, userID string, now time.Time) (vote models.Vote, updated bool, err error) {
	now = now.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vote, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the question row. SQLite transactions are already immediate.
	lockQuery := `SELECT id FROM question WHERE id = $1`
	if s.dbType == TypePostgres {
		lockQuery += ` FOR UPDATE`
	}
	var lockedID string
	if err := tx.QueryRowContext(ctx, lockQuery, questionID).Scan(&lockedID); err != nil {
		return vote, false, fmt.Errorf("failed to lock question %s: %w", questionID, err)
	}

	var choiceOK string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM choice WHERE id = $1 AND question_id = $2
	`, choiceID, questionID).Scan(&choiceOK)
	if err != nil {
		return vote, false, fmt.Errorf("failed to query choice %s: %w", choiceID, err)
	}

	// Check if a vote already exists
	var existingID string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM vote WHERE question_id = $1 AND user_id = $2
	`, questionID, userID).Scan(&existingID, &createdAt)

	switch {
	case err == nil:
		updated = true
		vote.ID = existingID
		vote.CreatedAt = createdAt.UTC()
	case errors.Is(err, sql.ErrNoRows):
		vote.ID, err = auth.GenerateID(16)
		if err != nil {
			return vote, false, err
		}
		vote.CreatedAt = now
	default:
		return vote, false, fmt.Errorf("failed to query vote: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, question_id, choice_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (question_id, user_id)
		DO UPDATE SET choice_id = excluded.choice_id, updated_at = excluded.updated_at
	`, vote.ID, questionID, choiceID, userID, now)
	if err != nil {
		return vote, false, fmt.Errorf("failed to upsert vote: %w", err)
	}

	// Full recount, so a switched vote moves between choices atomically
	_, err = tx.ExecContext(ctx, `
		UPDATE choice
		SET votes = (SELECT COUNT(*) FROM vote WHERE vote.choice_id = choice.id)
		WHERE question_id = $1
	`, questionID)
	if err != nil {
		return vote, false, fmt.Errorf("failed to recount votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return vote, false, fmt.Errorf("failed to commit vote: %w", err)
	}

	vote.QuestionID = questionID
	vote.ChoiceID = choiceID
	vote.UserID = &userID
	vote.UpdatedAt = now
	return vote, updated, nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	id, err := auth.GenerateID(12)
	if err != nil {
		return u, err
	}
	u.ID = id
	u.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_user (id, username, password_hash, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, string(u.PasswordHash), u.FirstName, u.LastName, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return u, fmt.Errorf("username %q: %w", u.Username, ErrDuplicate)
		}
		return u, fmt.Errorf("failed to insert user: %w", err)
	}

	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg string) (models.User, error) {
	var u models.User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, first_name, last_name, created_at
		FROM app_user `+where, arg).Scan(&u.ID, &u.Username, &hash, &u.FirstName, &u.LastName, &u.CreatedAt)
	if err != nil {
		return u, fmt.Errorf("failed to query user: %w", err)
	}
	u.PasswordHash = []byte(hash)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
