package engine

import (
	"context"

	documentdomain "lab-results-portal/internal/document/domain"
)

// AccessResult holds the result of guest-access policy evaluation.
type AccessResult struct {
	// Allow is true when the document's state admits guest access at all.
	Allow bool
	// DOBFallbackEnabled gates the date-of-birth verification path.
	DOBFallbackEnabled bool
}

// Evaluator evaluates guest-access policy using OPA or other engines. Policy
// can only narrow access: the verification protocol's hard checks (token,
// passcode, attempts, expiry) always apply on top of it.
type Evaluator interface {
	// EvaluateAccess evaluates guest-access policy for the given document.
	EvaluateAccess(ctx context.Context, doc *documentdomain.GuestDocument) (AccessResult, error)
}
