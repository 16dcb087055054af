package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Login errors
	ErrConfiguration      = errors.New("admin credentials are not configured")
	ErrValidation         = errors.New("invalid login request")
	ErrMissingFields      = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimitExceeded  = errors.New("too many login attempts")
)

// RateLimitError is returned when a client identity is locked out.
// It unwraps to ErrRateLimitExceeded.
type RateLimitError struct {
	LockedUntil time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: locked until %s", ErrRateLimitExceeded, e.LockedUntil.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}
