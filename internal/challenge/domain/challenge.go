package domain

import "time"

// Challenge represents a live OTP challenge for one guest link (stored in
// otp_challenges, keyed by the token's signature digest). At most one live
// row exists per token signature; issuing a new challenge replaces it.
type Challenge struct {
	ID             string
	TokenSignature string
	CodeHash       string
	ExpiresAt      time.Time
	Attempts       int
	CreatedAt      time.Time
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
