package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies one-time passcodes using bcrypt, the same
// primitive used for account passwords elsewhere in the platform. Callers
// must not log or persist plaintext passcodes.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default; passcodes are verified at most a handful of times.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash of code. Returns the hash as a string
// suitable for storage on the challenge row.
func (h *Hasher) Hash(code []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(code, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies code against the stored hash using constant-time
// comparison. Returns nil if they match; returns an error (including
// bcrypt.ErrMismatchedHashAndPassword) if they do not or on invalid hash.
func (h *Hasher) Compare(hash string, code []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), code)
}
