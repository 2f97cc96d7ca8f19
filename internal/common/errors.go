// Package common defines shared constants and sentinel errors used across
// the store server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Purchase errors.
	ErrConflict          = errors.New("entitlement already active")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPersistence       = errors.New("persistence failure")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// IsBusiness reports whether err belongs to the purchase validation taxonomy,
// i.e. it was detected before any mutation and must not be retried.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrorNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidArgument)
}
