package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AuthRepository handles Spotify credential database operations.
type AuthRepository struct {
	q sqlx.ExtContext
}

// Upsert stores the credentials for a user, replacing any previous pair.
func (r *AuthRepository) Upsert(ctx context.Context, auth *SpotifyAuth) error {
	query := `
		INSERT INTO spotify_auth (user_id, access_token, refresh_token, token_expiry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry
		RETURNING id
	`
	err := r.q.QueryRowxContext(ctx, query,
		auth.UserID,
		auth.AccessToken,
		auth.RefreshToken,
		auth.TokenExpiry,
	).Scan(&auth.ID)
	if err != nil {
		return fmt.Errorf("upserting spotify auth: %w", err)
	}
	return nil
}

// GetForUser retrieves the credentials belonging to a user.
func (r *AuthRepository) GetForUser(ctx context.Context, userID string) (*SpotifyAuth, error) {
	query := `
		SELECT id, user_id, access_token, refresh_token, token_expiry
		FROM spotify_auth
		WHERE user_id = $1
	`
	var auth SpotifyAuth
	err := sqlx.GetContext(ctx, r.q, &auth, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying spotify auth: %w", err)
	}
	return &auth, nil
}

// UpdateTokens persists a refreshed token pair.
func (r *AuthRepository) UpdateTokens(ctx context.Context, auth *SpotifyAuth) error {
	query := `
		UPDATE spotify_auth
		SET access_token = $2, refresh_token = $3, token_expiry = $4
		WHERE user_id = $1
	`
	result, err := r.q.ExecContext(ctx, query, auth.UserID, auth.AccessToken, auth.RefreshToken, auth.TokenExpiry)
	if err != nil {
		return fmt.Errorf("updating spotify auth: %w", err)
	}
	return expectRow(result)
}
