package repository

import (
	"context"

	"lab-results-portal/internal/document/domain"
)

// Repository is the guest flow's view of the results subsystem's documents:
// read by ID plus the single allowed write, the idempotent opened transition.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.GuestDocument, error)
	// MarkOpened transitions the document to OPENED unless it already is.
	// Double writes of the same value are harmless.
	MarkOpened(ctx context.Context, id string) error
}
