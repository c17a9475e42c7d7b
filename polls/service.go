// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/ku-polls/models"
)

// Store is the persistence the service needs. Lookups that find nothing
// return an error wrapping sql.ErrNoRows.
type Store interface {
	ListPublished(ctx context.Context, now time.Time) ([]models.Question, error)
	GetQuestion(ctx context.Context, id string) (models.Question, error)
	CreateQuestion(ctx context.Context, q models.Question, choices []string) (models.QuestionWithChoices, error)
	DeleteQuestion(ctx context.Context, id string) error

	ListChoices(ctx context.Context, questionID string) ([]models.Choice, error)
	GetChoice(ctx context.Context, questionID, choiceID string) (models.Choice, error)
	AddChoice(ctx context.Context, questionID, text string) (models.Choice, error)

	GetVote(ctx context.Context, questionID, userID string) (models.Vote, error)
	RecordVote(ctx context.Context, questionID, choiceID, userID string, now time.Time) (models.Vote, bool, error)
	CountVotes(ctx context.Context, questionID, choiceID string) (int, error)
}

// VoteAuditor receives an entry for every successful vote.
type VoteAuditor interface {
	VoteCast(username, questionID string, at time.Time)
}

type Service struct {
	store   Store
	log     *slog.Logger
	auditor VoteAuditor
}

func NewService(store Store, log *slog.Logger, auditor VoteAuditor) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log, auditor: auditor}
}

// VoteReceipt describes a recorded vote.
type VoteReceipt struct {
	Vote     models.Vote
	Question models.Question
	Choice   models.Choice
	// Updated is true when the vote replaced the user's earlier selection.
	Updated bool
	// RedirectTo is the results page for the question.
	RedirectTo string
}

// ResultsPath returns the results page of a question.
func ResultsPath(questionID string) string {
	return "/polls/" + url.PathEscape(questionID) + "/results/"
}

// DetailPath returns the voting page of a question.
func DetailPath(questionID string) string {
	return "/polls/" + url.PathEscape(questionID) + "/"
}

// ListPublished returns questions published at now, newest first.
func (s *Service) ListPublished(ctx context.Context, now time.Time) ([]models.QuestionSummary, error) {
	questions, err := s.store.ListPublished(ctx, now)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.QuestionSummary, 0, len(questions))
	for _, q := range questions {
		summaries = append(summaries, models.QuestionSummary{
			Question:          q,
			PublishedRecently: q.WasPublishedRecently(now),
			VotingOpen:        q.CanVote(now),
		})
	}
	return summaries, nil
}

// GetQuestion returns a question and its choices without any window check.
func (s *Service) GetQuestion(ctx context.Context, id string) (models.QuestionWithChoices, error) {
	var result models.QuestionWithChoices

	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return result, ErrNotFound
		}
		return result, err
	}

	choices, err := s.store.ListChoices(ctx, id)
	if err != nil {
		return result, err
	}

	result.Question = q
	result.Choices = choices
	return result, nil
}

// OpenQuestion returns a question for the voting page. It fails with
// ErrVotingClosed outside the voting window.
func (s *Service) OpenQuestion(ctx context.Context, id string, now time.Time) (models.QuestionWithChoices, error) {
	result, err := s.GetQuestion(ctx, id)
	if err != nil {
		return result, err
	}
	if !result.Question.CanVote(now) {
		return result, ErrVotingClosed
	}
	return result, nil
}

// GetResults returns a question with its tallies. Results stay visible
// after voting closes. Each cached tally is checked against the vote rows
// and the live count wins on mismatch.
func (s *Service) GetResults(ctx context.Context, id string) (models.QuestionWithChoices, error) {
	qc, err := s.GetQuestion(ctx, id)
	if err != nil {
		return qc, err
	}

	for i, c := range qc.Choices {
		n, err := s.store.CountVotes(ctx, id, c.ID)
		if err != nil {
			return models.QuestionWithChoices{}, err
		}
		if n != c.Votes {
			s.log.Warn("choice tally out of sync", "question_id", id, "choice_id", c.ID, "cached", c.Votes, "counted", n)
			qc.Choices[i].Votes = n
		}
	}
	return qc, nil
}

// CastVote records user's vote for choiceID on questionID.
//
// The eligibility check happens before the write transaction, so a vote
// racing end_date by a few milliseconds may still land.
func (s *Service) CastVote(ctx context.Context, user models.User, questionID, choiceID string, now time.Time) (*VoteReceipt, error) {
	if user.Anonymous() {
		return nil, ErrAnonymousUser
	}

	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !q.CanVote(now) {
		return nil, ErrVotingClosed
	}

	if strings.TrimSpace(choiceID) == "" {
		return nil, ErrInvalidChoice
	}
	choice, err := s.store.GetChoice(ctx, q.ID, choiceID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrInvalidChoice
		}
		return nil, err
	}

	vote, updated, err := s.store.RecordVote(ctx, q.ID, choice.ID, user.ID, now)
	if err != nil {
		// Question or choice deleted since the checks above
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.VoteCast(user.Username, q.ID, now)
	}
	s.log.Info("vote recorded",
		"question_id", q.ID,
		"choice_id", choice.ID,
		"user_id", user.ID,
		"is_update", updated,
	)

	return &VoteReceipt{
		Vote:       vote,
		Question:   q,
		Choice:     choice,
		Updated:    updated,
		RedirectTo: ResultsPath(q.ID),
	}, nil
}

// CurrentSelection returns the choice the user currently has for the
// question, or nil if the user has not voted on it.
func (s *Service) CurrentSelection(ctx context.Context, userID, questionID string) (*models.Choice, error) {
	if userID == "" {
		return nil, nil
	}

	vote, err := s.store.GetVote(ctx, questionID, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	choice, err := s.store.GetChoice(ctx, questionID, vote.ChoiceID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &choice, nil
}

// Admin commands

// CreateQuestion validates and stores a question with its choices. PubDate
// defaults to now and EndDate to one voting period after PubDate.
func (s *Service) CreateQuestion(ctx context.Context, req models.CreateQuestionRequest, now time.Time) (models.QuestionWithChoices, error) {
	text := strings.TrimSpace(req.Text)
	if err := validateText("text", text, models.MaxQuestionTextLen); err != nil {
		return models.QuestionWithChoices{}, err
	}

	pubDate := now
	if req.PubDate != nil {
		pubDate = *req.PubDate
	}
	q := models.NewQuestion(text, pubDate, req.EndDate)
	if q.EndDate.Before(q.PubDate) {
		return models.QuestionWithChoices{}, fmt.Errorf("%w: end_date is before pub_date", ErrInvalidQuestion)
	}

	choices := make([]string, 0, len(req.Choices))
	for _, c := range req.Choices {
		c = strings.TrimSpace(c)
		if err := validateText("choice", c, models.MaxChoiceTextLen); err != nil {
			return models.QuestionWithChoices{}, err
		}
		choices = append(choices, c)
	}

	created, err := s.store.CreateQuestion(ctx, q, choices)
	if err != nil {
		return created, err
	}

	s.log.Info("question created",
		"question_id", created.Question.ID,
		"pub_date", created.Question.PubDate,
		"end_date", created.Question.EndDate,
		"choices", len(created.Choices),
	)
	return created, nil
}

// AddChoice appends a choice to an existing question.
func (s *Service) AddChoice(ctx context.Context, questionID, text string) (models.Choice, error) {
	text = strings.TrimSpace(text)
	if err := validateText("choice", text, models.MaxChoiceTextLen); err != nil {
		return models.Choice{}, err
	}

	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		if isNoRows(err) {
			return models.Choice{}, ErrNotFound
		}
		return models.Choice{}, err
	}

	choice, err := s.store.AddChoice(ctx, questionID, text)
	if err != nil {
		return choice, err
	}

	s.log.Info("choice added", "question_id", questionID, "choice_id", choice.ID)
	return choice, nil
}

// DeleteQuestion removes a question together with its choices and votes.
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return err
	}

	s.log.Info("question deleted", "question_id", id)
	return nil
}

func validateText(field, text string, max int) error {
	if text == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidQuestion, field)
	}
	if utf8.RuneCountInString(text) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidQuestion, field, max)
	}
	return nil
}
