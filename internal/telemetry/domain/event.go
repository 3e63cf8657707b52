package domain

import (
	"encoding/json"
	"time"
)

// Event types emitted by the guest access flow.
const (
	EventChallengeIssued = "guest.challenge_issued"
	EventVerifySucceeded = "guest.verify_succeeded"
	EventVerifyFailed    = "guest.verify_failed"
	EventHTTPRequest     = "http_request"
)

// Event sources.
const (
	SourceGuestAPI       = "guest-api"
	SourceHTTPMiddleware = "http_middleware"
)

// GuestAccessEvent is a telemetry event for the guest document-access flow.
// Serialized as JSON onto the telemetry topic; the worker relays it to Loki.
type GuestAccessEvent struct {
	TenantID   string    `json:"tenantId"`
	DocumentID string    `json:"documentId"`
	EventType  string    `json:"eventType"`
	// Method is the verification method involved ("otp" or "dob"), empty for
	// challenge issuance.
	Method    string    `json:"method,omitempty"`
	// Outcome carries the failure class for EventVerifyFailed, empty otherwise.
	Outcome   string    `json:"outcome,omitempty"`
	Source    string    `json:"source"`
	// Metadata carries event-specific detail (e.g. route/status/duration for
	// http_request events).
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent returns a GuestAccessEvent stamped with the API source and current
// time.
func NewEvent(tenantID, documentID, eventType string) *GuestAccessEvent {
	return &GuestAccessEvent{
		TenantID:   tenantID,
		DocumentID: documentID,
		EventType:  eventType,
		Source:     SourceGuestAPI,
		CreatedAt:  time.Now().UTC(),
	}
}
