package repository

import (
	"context"
	"database/sql"

	"lab-results-portal/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	desc := sql.NullString{String: a.Description, Valid: a.Description != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, tenant_id, actor_id, action, resource_id, ip, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, a.ActorID, a.Action, a.ResourceID, a.IP, desc, a.CreatedAt)
	return err
}
