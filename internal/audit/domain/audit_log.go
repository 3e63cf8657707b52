package domain

import "time"

// AuditLog represents one audit event, tenant-scoped. ActorID is "PATIENT"
// for guest-access events since guests have no account.
type AuditLog struct {
	ID          string
	TenantID    string
	ActorID     string
	Action      string
	ResourceID  string
	IP          string
	Description string
	CreatedAt   time.Time
}

// ActionViewDocument is recorded on every successful guest verification.
const ActionViewDocument = "VIEW_DOCUMENT"

// ActorPatient is the actor recorded for guest (account-less) access.
const ActorPatient = "PATIENT"
