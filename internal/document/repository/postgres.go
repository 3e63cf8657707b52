package repository

import (
	"context"
	"database/sql"
	"errors"

	"lab-results-portal/internal/document/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a guest document repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the guest document for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.GuestDocument, error) {
	var (
		d      domain.GuestDocument
		status string
		dob    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, status, patient_phone, patient_dob, file_key, created_at
		 FROM guest_documents WHERE id = $1`, id).
		Scan(&d.ID, &d.TenantID, &status, &d.PatientPhone, &dob, &d.FileKey, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Status = domain.Status(status)
	if dob.Valid {
		t := dob.Time
		d.PatientDob = &t
	}
	return &d, nil
}

// MarkOpened sets status to OPENED for documents not already opened.
func (r *PostgresRepository) MarkOpened(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE guest_documents SET status = $1, opened_at = now()
		 WHERE id = $2 AND status <> $1`, string(domain.StatusOpened), id)
	return err
}
