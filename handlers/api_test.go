// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/testutil"
)

func TestListQuestions(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuestionHandler(env.svc)

	testutil.CreateTestQuestion(t, env.conn, "Old", testutil.DaysFromNow(-30), testutil.DaysFromNow(-29))
	testutil.CreateTestQuestion(t, env.conn, "Recent", testutil.DaysFromNow(-0.5), testutil.DaysFromNow(1))
	testutil.CreateTestQuestion(t, env.conn, "Future", testutil.DaysFromNow(1), testutil.DaysFromNow(2))

	w := httptest.NewRecorder()
	h.ListQuestions(w, testutil.MakeRequest("GET", "/api/questions", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var got []models.QuestionSummary
	testutil.AssertJSON(t, w, &got)

	if len(got) != 2 {
		t.Fatalf("Expected 2 published questions, got %d", len(got))
	}
	if got[0].Text != "Recent" || got[1].Text != "Old" {
		t.Errorf("Expected [Recent Old], got [%s %s]", got[0].Text, got[1].Text)
	}
	if !got[0].PublishedRecently || !got[0].VotingOpen {
		t.Errorf("Recent question flags = %+v", got[0])
	}
	if got[1].PublishedRecently || got[1].VotingOpen {
		t.Errorf("Old question flags = %+v", got[1])
	}
}

func TestGetQuestionAndResults(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuestionHandler(env.svc)

	openID := testutil.CreateOpenQuestion(t, env.conn, "Open")
	testutil.AddTestChoice(t, env.conn, openID, "A")
	closedID := testutil.CreateTestQuestion(t, env.conn, "Closed", testutil.DaysFromNow(-3), testutil.DaysFromNow(-2))
	closedChoice := testutil.AddTestChoice(t, env.conn, closedID, "B")
	user := testutil.CreateTestUser(t, env.conn, "voter", "abcdef")
	testutil.CastTestVote(t, env.conn, closedID, closedChoice, user.ID)

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		id       string
		expected int
	}{
		{"open question", h.GetQuestion, openID, http.StatusOK},
		{"closed question", h.GetQuestion, closedID, http.StatusConflict},
		{"missing question", h.GetQuestion, "missing", http.StatusNotFound},
		{"results of closed question", h.GetResults, closedID, http.StatusOK},
		{"results of missing question", h.GetResults, "missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/api/questions/"+tt.id, nil, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()
			tt.handler(w, req)
			testutil.AssertStatus(t, w, tt.expected)
		})
	}

	t.Run("results body", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/api/questions/"+closedID+"/results", nil, nil)
		req.SetPathValue("id", closedID)
		w := httptest.NewRecorder()
		h.GetResults(w, req)

		var res models.ResultsResponse
		testutil.AssertJSON(t, w, &res)
		if res.TotalVotes != 1 || len(res.Choices) != 1 || res.Choices[0].Votes != 1 {
			t.Errorf("Unexpected results: %+v", res)
		}
	})
}

func TestAPIVote(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuestionHandler(env.svc)

	user := testutil.CreateTestUser(t, env.conn, "tony", "abcdef")
	qID := testutil.CreateOpenQuestion(t, env.conn, "Lunch?")
	c1 := testutil.AddTestChoice(t, env.conn, qID, "Pizza")
	c2 := testutil.AddTestChoice(t, env.conn, qID, "Sushi")
	closedID := testutil.CreateTestQuestion(t, env.conn, "Closed", testutil.DaysFromNow(-3), testutil.DaysFromNow(-2))
	closedChoice := testutil.AddTestChoice(t, env.conn, closedID, "Late")

	vote := func(questionID, choiceID string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/api/questions/"+questionID+"/vote", models.VoteRequest{ChoiceID: choiceID}, nil)
		req.SetPathValue("id", questionID)
		w := httptest.NewRecorder()
		h.Vote(w, asUser(req, user))
		return w
	}

	t.Run("first vote", func(t *testing.T) {
		w := vote(qID, c1)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.VoteResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Updated || resp.ChoiceID != c1 || resp.VoteID == "" {
			t.Errorf("Unexpected response: %+v", resp)
		}
		if resp.ResultsURL != "/polls/"+qID+"/results/" {
			t.Errorf("ResultsURL = %q", resp.ResultsURL)
		}
	})

	t.Run("re-vote updates", func(t *testing.T) {
		w := vote(qID, c2)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.VoteResponse
		testutil.AssertJSON(t, w, &resp)
		if !resp.Updated {
			t.Error("Expected re-vote to report updated")
		}
	})

	errorCases := []struct {
		name       string
		questionID string
		choiceID   string
		expected   int
	}{
		{"empty choice", qID, "", http.StatusBadRequest},
		{"choice from another question", qID, closedChoice, http.StatusBadRequest},
		{"closed question", closedID, closedChoice, http.StatusConflict},
		{"missing question", "missing", c1, http.StatusNotFound},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			w := vote(tt.questionID, tt.choiceID)
			testutil.AssertStatus(t, w, tt.expected)
		})
	}

	if got := testutil.ChoiceTally(t, env.conn, c2); got != 1 {
		t.Errorf("Expected tally 1 for Sushi, got %d", got)
	}
	if got := testutil.ChoiceTally(t, env.conn, closedChoice); got != 0 {
		t.Errorf("Expected tally 0 on closed question, got %d", got)
	}
}

func TestAPIConcurrentVotes(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuestionHandler(env.svc)

	qID := testutil.CreateOpenQuestion(t, env.conn, "Busy question")
	choiceID := testutil.AddTestChoice(t, env.conn, qID, "Only")

	const numVoters = 8
	users := make([]models.User, numVoters)
	for i := range users {
		users[i] = testutil.CreateTestUser(t, env.conn, "voter"+string(rune('a'+i)), "abcdef")
	}

	var wg sync.WaitGroup
	codes := make([]int, numVoters)
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each voter submits twice to race the upsert
			for range 2 {
				req := testutil.MakeRequest("POST", "/api/questions/"+qID+"/vote", models.VoteRequest{ChoiceID: choiceID}, nil)
				req.SetPathValue("id", qID)
				w := httptest.NewRecorder()
				h.Vote(w, asUser(req, users[i]))
				codes[i] = w.Code
			}
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("voter %d got status %d", i, code)
		}
	}
	if n := testutil.CountVoteRows(t, env.conn, qID); n != numVoters {
		t.Errorf("Expected %d vote rows, got %d", numVoters, n)
	}
	if got := testutil.ChoiceTally(t, env.conn, choiceID); got != numVoters {
		t.Errorf("Expected tally %d, got %d", numVoters, got)
	}
}

func TestMyVote(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuestionHandler(env.svc)

	user := testutil.CreateTestUser(t, env.conn, "tony", "abcdef")
	qID := testutil.CreateOpenQuestion(t, env.conn, "Mine?")
	choiceID := testutil.AddTestChoice(t, env.conn, qID, "Yes")

	get := func(id string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("GET", "/api/questions/"+id+"/my-vote", nil, nil)
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()
		h.MyVote(w, asUser(req, user))
		return w
	}

	w := get(qID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.MyVoteResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Choice != nil {
		t.Errorf("Expected no selection before voting, got %+v", resp.Choice)
	}

	testutil.CastTestVote(t, env.conn, qID, choiceID, user.ID)

	w = get(qID)
	testutil.AssertStatus(t, w, http.StatusOK)
	resp = models.MyVoteResponse{}
	testutil.AssertJSON(t, w, &resp)
	if resp.Choice == nil || resp.Choice.ID != choiceID {
		t.Errorf("Expected selection %s, got %+v", choiceID, resp.Choice)
	}

	testutil.AssertStatus(t, get("missing"), http.StatusNotFound)
}

func TestAdminQuestions(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuestionHandler(env.svc)

	pub := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	before := pub.Add(-time.Hour)

	createCases := []struct {
		name     string
		req      models.CreateQuestionRequest
		expected int
	}{
		{"valid", models.CreateQuestionRequest{Text: "Favourite colour?", PubDate: &pub, Choices: []string{"Red", "Blue"}}, http.StatusCreated},
		{"missing text", models.CreateQuestionRequest{Text: "  ", Choices: []string{"Red"}}, http.StatusBadRequest},
		{"end before pub", models.CreateQuestionRequest{Text: "Backwards", PubDate: &pub, EndDate: &before}, http.StatusBadRequest},
		{"empty choice", models.CreateQuestionRequest{Text: "Blank", Choices: []string{""}}, http.StatusBadRequest},
	}

	var created models.QuestionWithChoices
	for _, tt := range createCases {
		t.Run("create "+tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.CreateQuestion(w, testutil.MakeRequest("POST", "/api/admin/questions", tt.req, nil))
			testutil.AssertStatus(t, w, tt.expected)
			if tt.expected == http.StatusCreated {
				testutil.AssertJSON(t, w, &created)
			}
		})
	}

	if created.Question.ID == "" {
		t.Fatal("Expected a created question")
	}
	if !created.Question.EndDate.Equal(pub.Add(models.DefaultVotingPeriod)) {
		t.Errorf("EndDate = %v, want pub + 24h", created.Question.EndDate)
	}
	if len(created.Choices) != 2 {
		t.Errorf("Expected 2 choices, got %d", len(created.Choices))
	}

	t.Run("add choice", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/api/admin/questions/x/choices", models.AddChoiceRequest{Text: "Green"}, nil)
		req.SetPathValue("id", created.Question.ID)
		w := httptest.NewRecorder()
		h.AddChoice(w, req)
		testutil.AssertStatus(t, w, http.StatusCreated)

		var resp models.AddChoiceResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.ChoiceID == "" {
			t.Error("Expected a choice id")
		}
	})

	t.Run("add choice to missing question", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/api/admin/questions/x/choices", models.AddChoiceRequest{Text: "Green"}, nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()
		h.AddChoice(w, req)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		for _, expected := range []int{http.StatusNoContent, http.StatusNotFound} {
			req := testutil.MakeRequest("DELETE", "/api/admin/questions/x", nil, nil)
			req.SetPathValue("id", created.Question.ID)
			w := httptest.NewRecorder()
			h.DeleteQuestion(w, req)
			testutil.AssertStatus(t, w, expected)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/admin/questions", nil)
		w := httptest.NewRecorder()
		h.CreateQuestion(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}
