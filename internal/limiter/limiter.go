// Package limiter defines interfaces and implementations for login rate limiting.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, username string, srcHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, username string, srcHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, username string, srcHash []byte) (bool, time.Duration, error)
}

// HashSource returns a stable hash for a login source (terminal, host) to
// avoid keying on raw identifiers.
func HashSource(src string) []byte {
	h := sha256.Sum256([]byte(src))
	return h[:]
}
