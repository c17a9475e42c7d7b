// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for KU Polls.

# Route Registration

NewRouter wires the store, service, sessions and handlers and returns the
complete handler chain:

	handler := router.NewRouter(db, cfg)

# Endpoints

Pages:

	GET  /                        - Redirect to /polls/
	GET  /polls/                  - Published questions, newest first
	GET  /polls/{id}/             - Voting form
	POST /polls/{id}/vote/        - Cast or change a vote (login required)
	GET  /polls/{id}/results/     - Tallies
	GET  /accounts/login/         - Login form
	POST /accounts/login/         - Log in
	POST /accounts/logout/        - Log out

JSON API:

	GET    /health
	GET    /api/questions
	GET    /api/questions/{id}
	GET    /api/questions/{id}/results
	POST   /api/questions/{id}/vote         (bearer token)
	GET    /api/questions/{id}/my-vote      (bearer token)
	POST   /api/login
	POST   /api/admin/questions             (X-Admin-Key)
	POST   /api/admin/questions/{id}/choices (X-Admin-Key)
	DELETE /api/admin/questions/{id}        (X-Admin-Key)
	POST   /api/admin/users                 (X-Admin-Key)
*/
package router
