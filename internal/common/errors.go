// Package common defines shared constants and sentinel errors used across
// the vault server. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Setup / login lifecycle errors.
	ErrConflict      = errors.New("master password already configured")
	ErrNotConfigured = errors.New("master password not configured")
	ErrRateLimited   = errors.New("too many failed attempts")

	// Envelope errors.
	ErrAuthenticationFailure = errors.New("authentication failure: wrong key or tampered data")
	ErrMalformedInput        = errors.New("malformed encrypted field")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// RateLimitedError is returned when a client is locked out. RetryAfter is the
// remaining lockout duration at the moment of the check.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts, please try again in %s", formatRetry(e.RetryAfter))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

func formatRetry(d time.Duration) string {
	if d < time.Second {
		return "a moment"
	}
	return d.Round(time.Second).String()
}
