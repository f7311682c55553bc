// Package crypto implements credential hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Verifier abstracts credential hashing so the scheme stays swappable
// and tests can substitute a cheap fake.
type Verifier interface {
	// Hash derives a credential hash for password using salt.
	Hash(password, salt []byte) []byte
	// Verify reports whether password matches the expected hash for salt.
	Verify(password, salt, expected []byte) bool
}

// Argon2id parameters (tuned for interactive logins on one machine).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
)

// Argon2Verifier is the production Verifier.
type Argon2Verifier struct{}

var _ Verifier = Argon2Verifier{}

// Hash returns Argon2id hash of password using the provided salt.
func (Argon2Verifier) Hash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// Verify compares in constant time against the expected Argon2id hash.
func (Argon2Verifier) Verify(password, salt, expected []byte) bool {
	got := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
