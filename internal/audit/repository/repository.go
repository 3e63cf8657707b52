package repository

import (
	"context"

	"lab-results-portal/internal/audit/domain"
)

// Repository defines persistence for audit logs. The guest flow only appends.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
}
