package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var feedbackColumns = []string{
	"id", "name", "email", "message", "created_at", "status",
	"admin_response", "admin_response_at", "admin_id",
}

// DefaultFeedbackPageSize bounds List when the filter sets no limit.
const DefaultFeedbackPageSize = 50

// FeedbackRepository handles feedback database operations.
type FeedbackRepository struct {
	q sqlx.ExtContext
}

// FeedbackFilter narrows List results.
type FeedbackFilter struct {
	Status FeedbackStatus // empty means any
	Limit  uint64
	Offset uint64
}

// Create inserts a new feedback record. Status defaults to new.
func (r *FeedbackRepository) Create(ctx context.Context, fb *Feedback) error {
	if fb.Status == "" {
		fb.Status = StatusNew
	}
	query := `
		INSERT INTO feedback (name, email, message, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		fb.Name,
		fb.Email,
		fb.Message,
		fb.Status,
	).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// Get retrieves a feedback record by ID.
func (r *FeedbackRepository) Get(ctx context.Context, id int64) (*Feedback, error) {
	query, args, err := sq.Select(feedbackColumns...).
		From("feedback").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building feedback query: %w", err)
	}

	var fb Feedback
	err = sqlx.GetContext(ctx, r.q, &fb, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	return &fb, nil
}

// List retrieves feedback newest first.
func (r *FeedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]Feedback, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultFeedbackPageSize
	}

	builder := sq.Select(feedbackColumns...).
		From("feedback").
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		Offset(filter.Offset).
		PlaceholderFormat(sq.Dollar)
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building feedback list: %w", err)
	}

	var items []Feedback
	if err := sqlx.SelectContext(ctx, r.q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	return items, nil
}

// MarkAsRead moves a new record to read. Records already read or responded are left alone.
func (r *FeedbackRepository) MarkAsRead(ctx context.Context, id int64) error {
	query := `UPDATE feedback SET status = $2 WHERE id = $1 AND status = $3`
	if _, err := r.q.ExecContext(ctx, query, id, StatusRead, StatusNew); err != nil {
		return fmt.Errorf("marking feedback read: %w", err)
	}
	return nil
}

// MarkAsResponded stores a staff response on fb and persists it immediately.
// Concurrent responses are not detected; the last write wins.
func (r *FeedbackRepository) MarkAsResponded(ctx context.Context, fb *Feedback, staffID int64, response string) error {
	fb.MarkAsResponded(staffID, response, time.Now())

	query := `
		UPDATE feedback
		SET status = $2, admin_response = $3, admin_response_at = $4, admin_id = $5
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query,
		fb.ID,
		fb.Status,
		fb.AdminResponse,
		fb.AdminResponseAt,
		fb.AdminID,
	)
	if err != nil {
		return fmt.Errorf("saving feedback response: %w", err)
	}
	return expectRow(result)
}

// Delete removes a feedback record by ID.
func (r *FeedbackRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting feedback: %w", err)
	}
	return expectRow(result)
}
