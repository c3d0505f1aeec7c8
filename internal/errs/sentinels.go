// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a conditional write lost (e.g. token already consumed).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication (no identity or bad credentials).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated identity that may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken, duplicate favorite).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalid marks input rejected before any remote call. ValidationError unwraps to it.
	ErrInvalid = errors.New("invalid input")
)
