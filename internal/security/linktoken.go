package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidLinkToken is returned when a capability token is malformed,
	// carries a bad signature, is expired, or was minted for another purpose.
	ErrInvalidLinkToken = errors.New("invalid link token")
)

// PurposeGuestAccess is the only purpose accepted by the guest verification flow.
const PurposeGuestAccess = "guest_access"

// LinkClaims holds JWT claims for a guest magic-link capability token.
// Subject is the guest document ID; Purpose must be "guest_access".
type LinkClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// LinkTokenProvider mints and verifies guest magic-link capability tokens.
// Tokens are HS256-signed with a secret dedicated to guest links, kept
// separate from any session or account secret so a compromise of one trust
// domain does not open the other.
type LinkTokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewLinkTokenProvider returns a LinkTokenProvider signing with secret.
// ttl bounds newly minted tokens (verification honors each token's own exp).
func NewLinkTokenProvider(secret []byte, issuer string, ttl time.Duration) *LinkTokenProvider {
	return &LinkTokenProvider{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue mints a capability token for documentID with purpose "guest_access".
// Called by the notification step when a result is uploaded or resent, and by
// the seed tool. Returns the compact token string and its expiry.
func (p *LinkTokenProvider) Issue(documentID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   documentID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: PurposeGuestAccess,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses and validates a capability token (signature, exp, iss,
// purpose) and returns the document ID it names. Signature comparison is
// constant-time inside the HMAC verifier. Pure; no side effects.
func (p *LinkTokenProvider) Verify(tokenString string) (documentID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &LinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidLinkToken
		}
		return p.secret, nil
	})
	if err != nil {
		return "", ErrInvalidLinkToken
	}
	claims, ok := token.Claims.(*LinkClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidLinkToken
	}
	if claims.Issuer != p.issuer {
		return "", ErrInvalidLinkToken
	}
	if claims.Purpose != PurposeGuestAccess {
		return "", ErrInvalidLinkToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidLinkToken
	}
	return claims.Subject, nil
}
