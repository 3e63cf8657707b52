package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testLinkSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestProvider(ttl time.Duration) *LinkTokenProvider {
	return NewLinkTokenProvider(testLinkSecret, "lab-results-portal", ttl)
}

func TestLinkToken_IssueAndVerify(t *testing.T) {
	p := newTestProvider(48 * time.Hour)
	token, expiresAt, err := p.Issue("doc-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("Issue returned empty token")
	}
	if !expiresAt.After(time.Now().Add(47 * time.Hour)) {
		t.Errorf("expiresAt = %v, want ~48h out", expiresAt)
	}
	docID, err := p.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if docID != "doc-123" {
		t.Errorf("documentID = %q, want doc-123", docID)
	}
}

func TestLinkToken_VerifyGarbage(t *testing.T) {
	p := newTestProvider(time.Hour)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := p.Verify(raw); err == nil {
			t.Errorf("Verify(%q) should fail", raw)
		}
	}
}

func TestLinkToken_VerifyExpired(t *testing.T) {
	p := newTestProvider(-time.Minute)
	token, _, err := p.Issue("doc-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Verify(token); err == nil {
		t.Fatal("Verify should reject expired token")
	}
}

func TestLinkToken_VerifyWrongSecret(t *testing.T) {
	p := newTestProvider(time.Hour)
	token, _, _ := p.Issue("doc-123")
	other := NewLinkTokenProvider([]byte("ffffffffffffffffffffffffffffffff"), "lab-results-portal", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatal("Verify should reject token signed with another secret")
	}
}

func TestLinkToken_VerifyWrongPurpose(t *testing.T) {
	p := newTestProvider(time.Hour)
	now := time.Now().UTC()
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doc-123",
			Issuer:    "lab-results-portal",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Purpose: "password_reset",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testLinkSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := p.Verify(raw); err == nil {
		t.Fatal("Verify should reject token with wrong purpose")
	}
}

func TestLinkToken_VerifyWrongIssuer(t *testing.T) {
	other := NewLinkTokenProvider(testLinkSecret, "someone-else", time.Hour)
	token, _, _ := other.Issue("doc-123")
	p := newTestProvider(time.Hour)
	if _, err := p.Verify(token); err == nil {
		t.Fatal("Verify should reject token from another issuer")
	}
}

func TestTokenSignature_StableAndDistinct(t *testing.T) {
	p := newTestProvider(time.Hour)
	tok1, _, _ := p.Issue("doc-1")
	tok2, _, _ := p.Issue("doc-2")

	sig1a := TokenSignature(tok1)
	sig1b := TokenSignature(tok1)
	if sig1a != sig1b {
		t.Error("TokenSignature should be deterministic for the same token")
	}
	if sig1a == TokenSignature(tok2) {
		t.Error("distinct tokens should yield distinct signatures")
	}
	if len(sig1a) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(sig1a))
	}
	if strings.Contains(sig1a, ".") {
		t.Error("signature should not contain JWT separators")
	}
}
