// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"database/sql"
	"errors"
)

var (
	ErrNotFound        = errors.New("poll does not exist")
	ErrVotingClosed    = errors.New("this poll has been out of date")
	ErrInvalidChoice   = errors.New("you didn't select a choice")
	ErrAnonymousUser   = errors.New("voting requires a logged-in user")
	ErrInvalidQuestion = errors.New("invalid question")
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
