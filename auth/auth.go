// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInvalidAdminKey    = errors.New("invalid admin key")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateAdminKey compares the provided admin key with the configured one
// in constant time. An empty configured key rejects everything.
func ValidateAdminKey(provided, configured string) error {
	if configured == "" || provided == "" {
		return ErrInvalidAdminKey
	}
	// Hash both sides so the comparison does not leak the key length
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(configured))
	if !hmac.Equal(a[:], b[:]) {
		return ErrInvalidAdminKey
	}
	return nil
}
