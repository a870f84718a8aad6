package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const wrapColumns = `id, user_id, title, created_at, tracks_data, artists_data, genres_data, time_range,
	holiday_theme, personality_info, friend_tracks_data, comp`

// WrapRepository handles saved summary database operations.
type WrapRepository struct {
	q sqlx.ExtContext
}

// Create inserts a new saved wrap.
func (r *WrapRepository) Create(ctx context.Context, wrap *SavedWrap) error {
	query := `
		INSERT INTO saved_wraps (user_id, title, created_at, tracks_data, artists_data, genres_data,
			time_range, holiday_theme, personality_info, friend_tracks_data, comp)
		VALUES ($1, $2, NOW(), $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		wrap.UserID,
		wrap.Title,
		wrap.TracksData,
		wrap.ArtistsData,
		wrap.GenresData,
		wrap.TimeRange,
		wrap.HolidayTheme,
		wrap.PersonalityInfo,
		wrap.FriendTracksData,
		wrap.Comp,
	).Scan(&wrap.ID, &wrap.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting wrap: %w", err)
	}
	return nil
}

// Get retrieves a wrap owned by userID.
func (r *WrapRepository) Get(ctx context.Context, userID string, id int64) (*SavedWrap, error) {
	query := `SELECT ` + wrapColumns + ` FROM saved_wraps WHERE id = $1 AND user_id = $2`
	var wrap SavedWrap
	err := sqlx.GetContext(ctx, r.q, &wrap, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying wrap: %w", err)
	}
	return &wrap, nil
}

// ListForUser retrieves all wraps for a user, newest first.
func (r *WrapRepository) ListForUser(ctx context.Context, userID string) ([]SavedWrap, error) {
	query := `SELECT ` + wrapColumns + ` FROM saved_wraps WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	var wraps []SavedWrap
	if err := sqlx.SelectContext(ctx, r.q, &wraps, query, userID); err != nil {
		return nil, fmt.Errorf("querying user wraps: %w", err)
	}
	return wraps, nil
}

// LatestForUser retrieves the user's most recent wrap.
func (r *WrapRepository) LatestForUser(ctx context.Context, userID string) (*SavedWrap, error) {
	query := `SELECT ` + wrapColumns + ` FROM saved_wraps WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	var wrap SavedWrap
	err := sqlx.GetContext(ctx, r.q, &wrap, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest wrap: %w", err)
	}
	return &wrap, nil
}

// Delete removes a wrap owned by userID.
func (r *WrapRepository) Delete(ctx context.Context, userID string, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM saved_wraps WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting wrap: %w", err)
	}
	return expectRow(result)
}
