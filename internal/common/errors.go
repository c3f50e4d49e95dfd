// Package common defines shared constants and sentinel errors used across
// client and server layers of GophAuth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Uniqueness violations, both match ErrorConflict.
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", ErrorConflict)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", ErrorConflict)

	// Bad email/password pair. Deliberately carries no hint about which part was wrong.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrorUnauthorized)

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = fmt.Errorf("invalid token: %w", ErrorUnauthorized)

	// Token lifecycle errors.
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrInvalidToken)

	ErrRefreshTokenRequired = fmt.Errorf("refresh token is required: %w", ErrorValidation)
)
