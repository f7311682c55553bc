// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service layers.
var (
	// ErrValidation indicates malformed or out-of-range input; no mutation was performed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing principal or insufficient role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a uniqueness violation (e.g., username or cart line taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrPersistence indicates the underlying storage read/write failed.
	ErrPersistence = errors.New("persistence failed")

	// ErrDeclined indicates the payment gateway declined the charge; the cart is untouched.
	ErrDeclined = errors.New("payment declined")
)
