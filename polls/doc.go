// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package polls implements listing, voting and tallying.

# Service

A Service wraps a Store, a logger and an auditor:

	svc := polls.NewService(db.NewStore(conn, cfg.DatabaseType), slog.Default(), audit.New(nil))

All operations take the current instant explicitly so the publication and
voting windows are checked against one clock reading.

# Voting

CastVote runs the whole voting command:

 1. anonymous users are rejected with ErrAnonymousUser
 2. the question must exist (ErrNotFound)
 3. the question must be in its voting window (ErrVotingClosed)
 4. the choice must belong to the question (ErrInvalidChoice)
 5. the vote is upserted and every choice of the question is recounted
    in one transaction

A user has at most one vote per question. Voting again moves the vote, and
both affected tallies are recomputed from vote rows.

# Reads

  - ListPublished: questions with pub_date <= now, newest first
  - GetQuestion / GetResults: question and choices, no window check;
    GetResults recounts each tally from the vote rows
  - OpenQuestion: question for the voting page, ErrVotingClosed outside the window
  - CurrentSelection: the user's current choice, read from the vote itself

# Errors

ErrNotFound and ErrVotingClosed send the user back to the index with a
notice. ErrInvalidChoice redisplays the voting form. ErrInvalidQuestion is
returned by the admin commands.
*/
package polls
