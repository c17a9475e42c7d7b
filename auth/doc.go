// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides ID generation, password hashing, API tokens and the
admin key check.

# IDs

GenerateID returns random hex identifiers for questions, choices, votes and
users:

	id, err := auth.GenerateID(16) // 32 hex chars

# Passwords

Passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword("secret")
	err = auth.CheckPassword(hash, "secret") // nil or ErrInvalidCredentials

# API Tokens

The JSON API authenticates with HS256 bearer tokens signed with the server
secret:

	tok, expiresAt, err := auth.SignToken(user.ID, user.Username, secret, time.Now(), auth.TokenTTL)
	claims, err := auth.ParseToken(tok, secret)

# Admin Key

Admin endpoints require an X-Admin-Key header equal to the configured key.
ValidateAdminKey compares in constant time.
*/
package auth
