// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for KU Polls.

# Handler Types

  - PageHandler: Server-rendered index, detail, vote and results pages
  - AccountHandler: Login and logout (HTML and JSON) and admin user creation
  - QuestionHandler: JSON API over questions, votes and admin commands

Pages are html/template files embedded from templates/ and layered on
base.html. Times and counts are formatted with go-humanize.

# Voting Flow

	GET  /polls/{id}/       → Detail (redirects to /polls/ with a notice when closed or missing)
	POST /polls/{id}/vote/  → Vote (login required)

A vote without a valid choice re-renders the detail page with an inline
error and status 200. A recorded vote redirects to the results page.

# JSON API Errors

	polls.ErrNotFound        → 404
	polls.ErrVotingClosed    → 409
	polls.ErrInvalidChoice   → 400
	polls.ErrInvalidQuestion → 400
	polls.ErrAnonymousUser   → 401
*/
package handlers
