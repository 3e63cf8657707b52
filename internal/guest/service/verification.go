// Package service implements the guest document-access verification protocol:
// challenge issuance, passcode verification, date-of-birth fallback, and the
// shared success path that mints a download grant.
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	auditdomain "lab-results-portal/internal/audit/domain"
	challengedomain "lab-results-portal/internal/challenge/domain"
	challengerepo "lab-results-portal/internal/challenge/repository"
	"lab-results-portal/internal/devotp"
	documentdomain "lab-results-portal/internal/document/domain"
	documentrepo "lab-results-portal/internal/document/repository"
	"lab-results-portal/internal/otp"
	policyengine "lab-results-portal/internal/policy/engine"
	"lab-results-portal/internal/security"
	"lab-results-portal/internal/sms"
	"lab-results-portal/internal/storage"
	"lab-results-portal/internal/telemetry"
	telemetrydomain "lab-results-portal/internal/telemetry/domain"
)

// Sentinel errors for the verification protocol; the HTTP handler maps them
// to status codes. Client-facing messages stay generic so a caller cannot
// tell a bad token from a missing document or a consumed challenge.
var (
	ErrInvalidToken        = errors.New("invalid or expired access link")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentGone        = errors.New("document no longer available")
	ErrNoChallenge         = errors.New("no active verification for this link")
	ErrChallengeExpired    = errors.New("verification code expired")
	ErrTooManyAttempts     = errors.New("too many attempts; request a new code")
	ErrInvalidCode         = errors.New("verification failed")
	ErrInvalidDOB          = errors.New("verification failed")
	ErrFallbackUnavailable = errors.New("date-of-birth verification is not available for this document")
	ErrGrantIssuance       = errors.New("could not prepare download; try again")
)

// ChallengeResult is the outcome of issuing (or re-issuing) a challenge.
// MaskedPhone never reveals more than the first 4 and last 3 characters.
type ChallengeResult struct {
	MaskedPhone string
	// Delivered is false when SMS dispatch failed; the challenge is still
	// valid and the patient may retry or receive the code out-of-band.
	Delivered bool
}

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	DownloadURL string
}

// AuditRecorder is the minimal audit surface needed by the service.
type AuditRecorder interface {
	Record(ctx context.Context, tenantID, actorID, action, resourceID, description string)
}

// Options holds protocol tuning; zero values fall back to the reference
// limits (10m challenge, 5m grant, 3 OTP attempts, 5 DOB attempts).
type Options struct {
	ChallengeTTL   time.Duration
	GrantTTL       time.Duration
	OTPMaxAttempts int
	DOBMaxAttempts int
	// DevOTP, when non-nil, captures generated codes instead of sending SMS.
	// Wired only in non-production environments.
	DevOTP devotp.Store
	// Events, when non-nil, receives guest access events. Best-effort and
	// asynchronous; never blocks or fails the request.
	Events telemetry.EventEmitter
}

// VerificationService orchestrates the guest access protocol. Stateless
// between requests; all protocol state lives in the challenge and document
// stores.
type VerificationService struct {
	links      *security.LinkTokenProvider
	hasher     *security.Hasher
	challenges challengerepo.Repository
	documents  documentrepo.Repository
	sender     sms.Sender
	grants     storage.GrantIssuer
	auditor    AuditRecorder
	policy     policyengine.Evaluator
	opts       Options
	nowF       func() time.Time
}

// NewVerificationService returns a VerificationService with the given
// dependencies. auditor and policy may be nil (audit skipped, policy
// defaults to the protocol's hard checks only).
func NewVerificationService(
	links *security.LinkTokenProvider,
	hasher *security.Hasher,
	challenges challengerepo.Repository,
	documents documentrepo.Repository,
	sender sms.Sender,
	grants storage.GrantIssuer,
	auditor AuditRecorder,
	policy policyengine.Evaluator,
	opts Options,
) *VerificationService {
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = challengerepo.DefaultChallengeTTL
	}
	if opts.GrantTTL <= 0 {
		opts.GrantTTL = 5 * time.Minute
	}
	if opts.OTPMaxAttempts <= 0 {
		opts.OTPMaxAttempts = 3
	}
	if opts.DOBMaxAttempts <= 0 {
		opts.DOBMaxAttempts = 5
	}
	return &VerificationService{
		links:      links,
		hasher:     hasher,
		challenges: challenges,
		documents:  documents,
		sender:     sender,
		grants:     grants,
		auditor:    auditor,
		policy:     policy,
		opts:       opts,
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// Challenge validates the capability token, generates a fresh passcode,
// replaces any prior challenge for the same token, and dispatches the code to
// the patient's phone. Re-invoking is the resend path: the previous code
// stops verifying the moment the new row lands.
func (s *VerificationService) Challenge(ctx context.Context, rawToken string) (*ChallengeResult, error) {
	doc, _, err := s.resolveDocument(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	code, err := otp.Generate()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash([]byte(code))
	if err != nil {
		return nil, err
	}

	now := s.nowF()
	expiresAt := now.Add(s.opts.ChallengeTTL)
	ch := &challengedomain.Challenge{
		ID:             uuid.New().String(),
		TokenSignature: security.TokenSignature(rawToken),
		CodeHash:       hash,
		ExpiresAt:      expiresAt,
		Attempts:       0,
		CreatedAt:      now,
	}
	if err := s.challenges.Replace(ctx, ch); err != nil {
		return nil, err
	}

	delivered := true
	if s.opts.DevOTP != nil {
		s.opts.DevOTP.Put(ctx, ch.TokenSignature, code, expiresAt)
	} else if err := s.sender.SendPasscode(doc.PatientPhone, code); err != nil {
		// Dispatch is best-effort: the challenge stays valid and the patient
		// can request a resend. Never surface gateway details to the caller.
		log.Printf("guest: passcode dispatch failed for document %s: %v", doc.ID, err)
		delivered = false
	}

	s.emit(ctx, doc, telemetrydomain.EventChallengeIssued, "", "")
	return &ChallengeResult{MaskedPhone: MaskPhone(doc.PatientPhone), Delivered: delivered}, nil
}

// VerifyOTP checks the submitted passcode against the live challenge for the
// token. Three failures lock the challenge until a fresh one is issued.
func (s *VerificationService) VerifyOTP(ctx context.Context, rawToken, code string) (*VerifyResult, error) {
	doc, _, err := s.resolveDocument(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	ch, err := s.challenges.GetByTokenSignature(ctx, security.TokenSignature(rawToken))
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNoChallenge
	}
	if ch.Expired(s.nowF()) {
		return nil, ErrChallengeExpired
	}
	if ch.Attempts >= s.opts.OTPMaxAttempts {
		return nil, ErrTooManyAttempts
	}

	if err := s.hasher.Compare(ch.CodeHash, []byte(code)); err != nil {
		if _, _, err := s.challenges.IncrementAttempts(ctx, ch.ID); err != nil {
			return nil, err
		}
		s.emit(ctx, doc, telemetrydomain.EventVerifyFailed, "otp", "invalid_code")
		return nil, ErrInvalidCode
	}

	return s.finish(ctx, doc, ch, "otp")
}

// VerifyDOB checks the submitted date of birth against the document. Only
// reachable after a challenge was issued; it shares that challenge's attempts
// counter with a higher ceiling, reflecting the weaker secret.
func (s *VerificationService) VerifyDOB(ctx context.Context, rawToken string, dob time.Time) (*VerifyResult, error) {
	doc, access, err := s.resolveDocument(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if !access.DOBFallbackEnabled {
		return nil, ErrFallbackUnavailable
	}

	ch, err := s.challenges.GetByTokenSignature(ctx, security.TokenSignature(rawToken))
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNoChallenge
	}
	if ch.Attempts >= s.opts.DOBMaxAttempts {
		return nil, ErrTooManyAttempts
	}

	if doc.PatientDob == nil {
		return nil, ErrFallbackUnavailable
	}

	if !sameCalendarDate(*doc.PatientDob, dob) {
		if _, _, err := s.challenges.IncrementAttempts(ctx, ch.ID); err != nil {
			return nil, err
		}
		s.emit(ctx, doc, telemetrydomain.EventVerifyFailed, "dob", "invalid_dob")
		return nil, ErrInvalidDOB
	}

	return s.finish(ctx, doc, ch, "dob")
}

// resolveDocument verifies the capability token, loads the document, and
// applies the terminal-state and policy gates shared by every operation.
func (s *VerificationService) resolveDocument(ctx context.Context, rawToken string) (*documentdomain.GuestDocument, policyengine.AccessResult, error) {
	access := policyengine.AccessResult{Allow: true, DOBFallbackEnabled: true}
	if strings.TrimSpace(rawToken) == "" {
		return nil, access, ErrInvalidToken
	}
	docID, err := s.links.Verify(rawToken)
	if err != nil {
		return nil, access, ErrInvalidToken
	}
	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		return nil, access, err
	}
	if doc == nil {
		return nil, access, ErrDocumentNotFound
	}
	if doc.Status == documentdomain.StatusExpired {
		return nil, access, ErrDocumentGone
	}
	if s.policy != nil {
		access, err = s.policy.EvaluateAccess(ctx, doc)
		if err != nil {
			return nil, access, err
		}
		if !access.Allow {
			return nil, access, ErrDocumentGone
		}
	}
	return doc, access, nil
}

// finish is the shared success path: audit, idempotent OPENED transition,
// exclusive challenge consumption, then the download grant. The challenge is
// consumed before the grant is requested and stays consumed even if the grant
// fails; verification is strictly single-use.
func (s *VerificationService) finish(ctx context.Context, doc *documentdomain.GuestDocument, ch *challengedomain.Challenge, method string) (*VerifyResult, error) {
	if s.auditor != nil {
		s.auditor.Record(ctx, doc.TenantID, auditdomain.ActorPatient, auditdomain.ActionViewDocument, doc.ID, method)
	}

	if doc.Status != documentdomain.StatusOpened {
		if err := s.documents.MarkOpened(ctx, doc.ID); err != nil {
			return nil, err
		}
	}

	consumed, err := s.challenges.Consume(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// A racing verifier already consumed this challenge; only the first
		// one gets a grant.
		return nil, ErrNoChallenge
	}

	url, err := s.grants.Issue(ctx, doc.FileKey, s.opts.GrantTTL)
	if err != nil {
		return nil, ErrGrantIssuance
	}
	s.emit(ctx, doc, telemetrydomain.EventVerifySucceeded, method, "")
	return &VerifyResult{DownloadURL: url}, nil
}

// emit sends a guest access event when an emitter is wired. Fire-and-forget.
func (s *VerificationService) emit(ctx context.Context, doc *documentdomain.GuestDocument, eventType, method, outcome string) {
	if s.opts.Events == nil {
		return
	}
	ev := telemetrydomain.NewEvent(doc.TenantID, doc.ID, eventType)
	ev.Method = method
	ev.Outcome = outcome
	telemetry.EmitAsync(s.opts.Events, ctx, ev)
}

// MaskPhone keeps the first 4 and last 3 characters of phone and replaces the
// middle with "***" (e.g. +237670000789 → +237***789). Numbers too short to
// mask safely are fully redacted.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) < 8 {
		return "***"
	}
	return phone[:4] + "***" + phone[len(phone)-3:]
}

// sameCalendarDate compares year, month, and day only; time-of-day and
// timezone offsets carried by either value are ignored.
func sameCalendarDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
