package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TokenSignature returns a stable identifier for a capability token: the
// SHA-256 hex digest of the token's signature segment. Challenge state is
// keyed by this value so the raw token is never persisted. Stable across
// requests because the signature segment is deterministic for a given token.
//
// Callers must verify the token first; this is a derivation, not a check.
func TokenSignature(token string) string {
	seg := token
	if i := strings.LastIndex(token, "."); i >= 0 {
		seg = token[i+1:]
	}
	h := sha256.Sum256([]byte(seg))
	return hex.EncodeToString(h[:])
}
