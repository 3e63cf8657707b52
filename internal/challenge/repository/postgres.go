package repository

import (
	"context"
	"database/sql"
	"errors"

	"lab-results-portal/internal/challenge/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an OTP challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace deletes any existing challenge for the token signature and inserts
// the new one in a single transaction, so a resend never leaves two live rows.
func (r *PostgresRepository) Replace(ctx context.Context, c *domain.Challenge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE token_signature = $1`, c.TokenSignature); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO otp_challenges (id, token_signature, code_hash, expires_at, attempts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TokenSignature, c.CodeHash, c.ExpiresAt, c.Attempts, c.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByTokenSignature returns the challenge for sig, or nil if not found.
func (r *PostgresRepository) GetByTokenSignature(ctx context.Context, sig string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token_signature, code_hash, expires_at, attempts, created_at
		 FROM otp_challenges WHERE token_signature = $1`, sig).
		Scan(&c.ID, &c.TokenSignature, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// IncrementAttempts bumps the attempts counter atomically and returns the new
// value. The row-level UPDATE serializes racing verifiers on one challenge.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, bool, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id).
		Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return attempts, true, nil
}

// Consume deletes the challenge by id and reports whether this caller removed
// it. A racing verifier that loses the delete sees false.
func (r *PostgresRepository) Consume(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
