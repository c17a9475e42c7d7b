// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/polls"
)

// QuestionHandler serves the JSON API over questions, choices and votes
type QuestionHandler struct {
	svc *polls.Service
	now func() time.Time
}

func NewQuestionHandler(svc *polls.Service) *QuestionHandler {
	return &QuestionHandler{svc: svc, now: time.Now}
}

// ListQuestions handles GET /api/questions
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.svc.ListPublished(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, questions)
}

// GetQuestion handles GET /api/questions/{id}. Only questions open for
// voting are served, matching the HTML detail page.
func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.OpenQuestion(r.Context(), r.PathValue("id"), h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, q)
}

// GetResults handles GET /api/questions/{id}/results
func (h *QuestionHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.GetResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Question:   q.Question,
		Choices:    q.Choices,
		TotalVotes: q.TotalVotes(),
	})
}

// Vote handles POST /api/questions/{id}/vote. Wrapped in middleware.RequireAPIUser.
func (h *QuestionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	receipt, err := h.svc.CastVote(r.Context(), user, r.PathValue("id"), strings.TrimSpace(req.ChoiceID), h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "Vote recorded"
	if receipt.Updated {
		message = "Vote updated"
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		VoteID:     receipt.Vote.ID,
		ChoiceID:   receipt.Choice.ID,
		Updated:    receipt.Updated,
		Message:    message,
		ResultsURL: receipt.RedirectTo,
	})
}

// MyVote handles GET /api/questions/{id}/my-vote. Wrapped in middleware.RequireAPIUser.
func (h *QuestionHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	questionID := r.PathValue("id")

	if _, err := h.svc.GetQuestion(r.Context(), questionID); err != nil {
		writeServiceError(w, err)
		return
	}

	choice, err := h.svc.CurrentSelection(r.Context(), user.ID, questionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MyVoteResponse{
		QuestionID: questionID,
		Choice:     choice,
	})
}

// Admin operations, wrapped in middleware.RequireAdminKey

// CreateQuestion handles POST /api/admin/questions
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	created, err := h.svc.CreateQuestion(r.Context(), req, h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, created)
}

// AddChoice handles POST /api/admin/questions/{id}/choices
func (h *QuestionHandler) AddChoice(w http.ResponseWriter, r *http.Request) {
	var req models.AddChoiceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	choice, err := h.svc.AddChoice(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, models.AddChoiceResponse{ChoiceID: choice.ID})
}

// DeleteQuestion handles DELETE /api/admin/questions/{id}
func (h *QuestionHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps polls errors onto API status codes
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, polls.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll does not exist")
	case errors.Is(err, polls.ErrVotingClosed):
		middleware.ErrorResponse(w, http.StatusConflict, "Voting is closed for this poll")
	case errors.Is(err, polls.ErrInvalidChoice):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Choice is not part of this poll")
	case errors.Is(err, polls.ErrInvalidQuestion):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, polls.ErrAnonymousUser):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
	default:
		slog.Error("request failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}
