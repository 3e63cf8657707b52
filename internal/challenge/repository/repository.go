package repository

import (
	"context"
	"time"

	"lab-results-portal/internal/challenge/domain"
)

// Repository defines persistence for OTP challenges. A token signature has at
// most one live challenge; Replace supersedes any prior row in one
// transaction. IncrementAttempts and Consume are the two operations racing
// verifiers contend on and must be atomic at the row level.
type Repository interface {
	// Replace deletes any challenge for c.TokenSignature and inserts c.
	Replace(ctx context.Context, c *domain.Challenge) error
	// GetByTokenSignature returns the live challenge for sig, or nil if none.
	GetByTokenSignature(ctx context.Context, sig string) (*domain.Challenge, error)
	// IncrementAttempts adds one to the attempts counter and returns the new
	// value. Returns ok false if the row no longer exists.
	IncrementAttempts(ctx context.Context, id string) (attempts int, ok bool, err error)
	// Consume deletes the challenge by id. Returns false if the row was
	// already gone; the first successful verifier wins.
	Consume(ctx context.Context, id string) (bool, error)
}

// DefaultChallengeTTL is the default OTP challenge expiry.
const DefaultChallengeTTL = 10 * time.Minute
