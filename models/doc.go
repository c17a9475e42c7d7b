// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the polls app.

# Domain Types

  - Question: poll text and its publication/voting window
  - Choice: one answer to a question with a cached vote tally
  - Vote: a user's current selection for a question
  - User: an account that can vote
  - QuestionWithChoices: a question and its choices
  - QuestionSummary: a listed question with window flags resolved

# Publication Window

A Question is published from PubDate onwards and votable on the closed
interval [PubDate, EndDate]:

	q := models.NewQuestion("Best editor?", now, nil) // EndDate = now + 24h
	q.IsPublished(now)          // true
	q.CanVote(now.Add(25*time.Hour)) // false
	q.WasPublishedRecently(now) // true

All predicates are pure functions of the instant passed in.

# Request Types

  - VoteRequest: choice_id
  - LoginRequest: username, password
  - CreateQuestionRequest: text, pub_date, end_date, choices
  - AddChoiceRequest: text
  - CreateUserRequest: username, password, first_name, last_name

# Response Types

  - VoteResponse, MyVoteResponse, LoginResponse, ResultsResponse,
    AddChoiceResponse, ErrorResponse
*/
package models
