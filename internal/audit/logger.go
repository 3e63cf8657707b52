package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"lab-results-portal/internal/audit/domain"
	auditrepo "lab-results-portal/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for audit events that cannot be tied
// to a tenant (e.g. a verification against a document that no longer exists).
const SentinelTenantID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// Record is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	Record(ctx context.Context, tenantID, actorID, action, resourceID, description string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// Record writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, tenantID, actorID, action, resourceID, description string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		ActorID:     actorID,
		Action:      action,
		ResourceID:  resourceID,
		IP:          ip,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s/%s: %v", action, resourceID, err)
	}
}
