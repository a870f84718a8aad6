package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StaffRepository handles staff account database operations.
type StaffRepository struct {
	q sqlx.ExtContext
}

// Create inserts a new staff account.
func (r *StaffRepository) Create(ctx context.Context, staff *StaffUser) error {
	query := `
		INSERT INTO staff_users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`
	err := r.q.QueryRowxContext(ctx, query, staff.Username, staff.Email, staff.PasswordHash).
		Scan(&staff.ID, &staff.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting staff user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a staff account by login name.
func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*StaffUser, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM staff_users
		WHERE username = $1
	`
	var staff StaffUser
	err := sqlx.GetContext(ctx, r.q, &staff, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying staff user: %w", err)
	}
	return &staff, nil
}

// Delete removes a staff account. Feedback it answered keeps the response
// but loses the admin reference.
func (r *StaffRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM staff_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting staff user: %w", err)
	}
	return expectRow(result)
}
