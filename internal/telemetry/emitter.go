package telemetry

import (
	"context"

	"lab-results-portal/internal/telemetry/domain"
)

// EventEmitter emits guest access events (e.g. to Kafka or OTel Logs).
// Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.GuestAccessEvent) error
}
