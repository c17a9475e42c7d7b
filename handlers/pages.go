// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/polls"
)

// Notices shown on the index after a rejected detail or vote request
const (
	FlashNotFound = "Poll does not exist."
	FlashClosed   = "This poll has been out of date."
	ErrorNoChoice = "You didn't select a choice."
)

// PageHandler serves the server-rendered poll pages
type PageHandler struct {
	svc   *polls.Service
	sess  *middleware.Sessions
	pages *Pages
	now   func() time.Time
}

func NewPageHandler(svc *polls.Service, sess *middleware.Sessions, pages *Pages) *PageHandler {
	return &PageHandler{svc: svc, sess: sess, pages: pages, now: time.Now}
}

type indexPage struct {
	pageData
	Questions []models.QuestionSummary
}

type detailPage struct {
	pageData
	Question models.Question
	Choices  []models.Choice
	Selected string
	Error    string
}

type resultsPage struct {
	pageData
	Question models.Question
	Choices  []models.Choice
	Total    int
}

// Root handles GET /
func (h *PageHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/polls/", http.StatusFound)
}

// Index handles GET /polls/
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	questions, err := h.svc.ListPublished(r.Context(), h.now())
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.pages.render(w, http.StatusOK, "index", indexPage{
		pageData:  h.common(w, r),
		Questions: questions,
	})
}

// Detail handles GET /polls/{id}/
func (h *PageHandler) Detail(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("id")

	q, err := h.svc.OpenQuestion(r.Context(), questionID, h.now())
	if err != nil {
		h.rejectToIndex(w, r, err)
		return
	}

	data := detailPage{Question: q.Question, Choices: q.Choices}
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		selected, err := h.svc.CurrentSelection(r.Context(), user.ID, questionID)
		if err != nil {
			slog.Error("failed to load current selection", "error", err, "question_id", questionID)
		} else if selected != nil {
			data.Selected = selected.ID
		}
	}
	data.pageData = h.common(w, r)

	h.pages.render(w, http.StatusOK, "detail", data)
}

// Vote handles POST /polls/{id}/vote/. Wrapped in middleware.RequireLogin.
func (h *PageHandler) Vote(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("id")
	user, _ := middleware.UserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	receipt, err := h.svc.CastVote(r.Context(), user, questionID, r.PostFormValue("choice"), h.now())
	switch {
	case err == nil:
		http.Redirect(w, r, receipt.RedirectTo, http.StatusFound)
	case errors.Is(err, polls.ErrInvalidChoice):
		h.redisplay(w, r, user, questionID)
	case errors.Is(err, polls.ErrAnonymousUser):
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
	default:
		h.rejectToIndex(w, r, err)
	}
}

// Results handles GET /polls/{id}/results/
func (h *PageHandler) Results(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.GetResults(r.Context(), r.PathValue("id"))
	if err != nil {
		h.rejectToIndex(w, r, err)
		return
	}

	h.pages.render(w, http.StatusOK, "results", resultsPage{
		pageData: h.common(w, r),
		Question: q.Question,
		Choices:  q.Choices,
		Total:    q.TotalVotes(),
	})
}

// redisplay renders the voting form again with the missing-choice error
func (h *PageHandler) redisplay(w http.ResponseWriter, r *http.Request, user models.User, questionID string) {
	q, err := h.svc.GetQuestion(r.Context(), questionID)
	if err != nil {
		h.rejectToIndex(w, r, err)
		return
	}

	data := detailPage{
		Question: q.Question,
		Choices:  q.Choices,
		Error:    ErrorNoChoice,
	}
	if selected, err := h.svc.CurrentSelection(r.Context(), user.ID, questionID); err == nil && selected != nil {
		data.Selected = selected.ID
	}
	data.pageData = h.common(w, r)

	h.pages.render(w, http.StatusOK, "detail", data)
}

// rejectToIndex maps NotFound and VotingClosed to a flash on the index
func (h *PageHandler) rejectToIndex(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, polls.ErrNotFound):
		h.sess.AddFlash(w, r, FlashNotFound)
	case errors.Is(err, polls.ErrVotingClosed):
		h.sess.AddFlash(w, r, FlashClosed)
	default:
		slog.Error("poll request failed", "error", err, "path", r.URL.Path)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/polls/", http.StatusFound)
}

// common pops flashes and attaches the logged-in user
func (h *PageHandler) common(w http.ResponseWriter, r *http.Request) pageData {
	return commonData(h.sess, w, r)
}

func commonData(sess *middleware.Sessions, w http.ResponseWriter, r *http.Request) pageData {
	data := pageData{Flashes: sess.Flashes(w, r)}
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		data.User = &user
	}
	return data
}
