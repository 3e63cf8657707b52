package domain

import "time"

// Status is the delivery state of a guest document. The guest flow only ever
// writes the DELIVERED→OPENED transition; EXPIRED marks retention-policy
// deletion and is terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusOpened    Status = "OPENED"
	StatusExpired   Status = "EXPIRED"
)

// GuestDocument is a patient result owned by the results subsystem. The guest
// verification flow reads it and performs exactly one write: marking it
// opened on first successful verification.
type GuestDocument struct {
	ID           string
	TenantID     string
	Status       Status
	PatientPhone string
	// PatientDob is nil when no date of birth was captured at import; the DOB
	// fallback is unavailable then. Only the calendar date is significant.
	PatientDob *time.Time
	FileKey    string
	CreatedAt  time.Time
}
