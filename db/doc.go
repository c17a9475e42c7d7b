// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, schema creation and persistence.

# Connecting

Open selects the driver by database type and verifies the connection:

	conn, err := db.Open(db.TypeSQLite, "file:polls.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite connections enable foreign keys and a busy timeout and are limited to
a single open connection, so ":memory:" databases work for tests.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same statements run on SQLite and PostgreSQL.

# Tables

  - app_user: Accounts with bcrypt password hashes
  - question: Text plus publication window (end_date >= pub_date)
  - choice: Options per question with a cached vote tally
  - vote: One row per (question, user)

# Relationships

	question 1──* choice
	question 1──* vote
	choice   1──* vote
	app_user 1──* vote

Deleting a question cascades to its choices and votes. Deleting a user keeps
the votes with user_id set to NULL.

# Store

Store implements the persistence used by the polls service. RecordVote
upserts the user's vote and recounts every tally of the question in one
transaction; the UNIQUE (question_id, user_id) constraint keeps concurrent
first votes from creating duplicates.
*/
package db
