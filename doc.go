// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the KU Polls server.

KU Polls is a small polling site: visitors browse published questions and
their results, logged-in users vote once per question and may change their
vote while the question is open.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	SECRET_KEY=... ADMIN_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --seed fixtures.yaml

A .env file in the working directory is loaded first (see --env-file).

# Configuration

Required settings:

  - SECRET_KEY (--secret-key): Signs session cookies and API tokens
  - ADMIN_KEY (--admin-key): Guards the /api/admin endpoints

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - DATABASE_URL (-d): Connection string (default: file:polls.db)
  - SEED_FILE (--seed): YAML users and questions loaded at startup
  - LOG_LEVEL, LOG_FORMAT: slog level and text/json output

# Architecture

  - handlers: HTML pages, account pages and the JSON API
  - router: Route definitions using Go 1.22+ routing
  - middleware: Sessions, user resolution, guards, logging, JSON helpers
  - polls: Listing, voting and admin rules
  - db: Schema, connection setup and the SQL store
  - models: Domain, request and response types
  - auth: Passwords, tokens and admin key checks
  - audit: Vote and login audit entries
  - seed: YAML fixture loading
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
