package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// WrappedIDConstraint is the unique constraint guarding public user ids.
const WrappedIDConstraint = "spotify_users_wrapped_id_key"

const userColumns = `spotify_id, user_name, profile_image, past_wraps, last_spotify_wrapped, personality_description, wrapped_id`

// UserRepository handles user and friend-graph database operations.
type UserRepository struct {
	q         sqlx.ExtContext
	observers []DeletionObserver
}

// ProfileUpdate lists the profile fields to change; nil fields are left untouched.
type ProfileUpdate struct {
	UserName               *string
	ProfileImage           *string
	PersonalityDescription *string
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO spotify_users (spotify_id, user_name, profile_image, past_wraps, last_spotify_wrapped, personality_description, wrapped_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	fillJSONDefaults(user)
	_, err := r.q.ExecContext(ctx, query,
		user.SpotifyID,
		user.UserName,
		user.ProfileImage,
		user.PastWraps,
		user.LastSpotifyWrapped,
		user.PersonalityDescription,
		user.WrappedID,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Upsert creates the user on first login or refreshes its display fields.
// An existing wrapped_id is never replaced; the stored row is scanned back into user.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO spotify_users (spotify_id, user_name, profile_image, wrapped_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (spotify_id) DO UPDATE SET
			user_name = EXCLUDED.user_name,
			profile_image = EXCLUDED.profile_image
		RETURNING ` + userColumns
	err := sqlx.GetContext(ctx, r.q, user, query,
		user.SpotifyID,
		user.UserName,
		user.ProfileImage,
		user.WrappedID,
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// Get retrieves a user by Spotify ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM spotify_users WHERE spotify_id = $1`
	return r.getOne(ctx, query, id)
}

// GetByWrappedID retrieves a user by its public identifier.
func (r *UserRepository) GetByWrappedID(ctx context.Context, wrappedID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM spotify_users WHERE wrapped_id = $1`
	return r.getOne(ctx, query, wrappedID)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := sqlx.GetContext(ctx, r.q, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies the non-nil fields of upd.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	set := map[string]any{}
	if upd.UserName != nil {
		set["user_name"] = *upd.UserName
	}
	if upd.ProfileImage != nil {
		set["profile_image"] = *upd.ProfileImage
	}
	if upd.PersonalityDescription != nil {
		set["personality_description"] = *upd.PersonalityDescription
	}
	if len(set) == 0 {
		return nil
	}

	query, args, err := sq.Update("spotify_users").
		SetMap(set).
		Where(sq.Eq{"spotify_id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building profile update: %w", err)
	}

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return expectRow(result)
}

// RecordWrap stores summary as the user's latest wrap and appends it to the history.
func (r *UserRepository) RecordWrap(ctx context.Context, id string, summary json.RawMessage) error {
	query := `
		UPDATE spotify_users
		SET past_wraps = past_wraps || jsonb_build_array($2::jsonb),
			last_spotify_wrapped = $2::jsonb
		WHERE spotify_id = $1
	`
	result, err := r.q.ExecContext(ctx, query, id, []byte(summary))
	if err != nil {
		return fmt.Errorf("recording wrap: %w", err)
	}
	return expectRow(result)
}

// AddFriend connects two users in both directions with a single statement,
// so the pair is never half-written. Adding oneself or an existing friend is a no-op.
func (r *UserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return nil
	}
	query := `
		INSERT INTO spotify_user_friends (from_user_id, to_user_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, query, userID, friendID); err != nil {
		return fmt.Errorf("adding friend: %w", err)
	}
	return nil
}

// RemoveFriend removes the connection in both directions. Missing edges are ignored.
func (r *UserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	query := `
		DELETE FROM spotify_user_friends
		WHERE (from_user_id = $1 AND to_user_id = $2)
		   OR (from_user_id = $2 AND to_user_id = $1)
	`
	if _, err := r.q.ExecContext(ctx, query, userID, friendID); err != nil {
		return fmt.Errorf("removing friend: %w", err)
	}
	return nil
}

// IsFriend reports whether friendID is in userID's friend list.
func (r *UserRepository) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM spotify_user_friends WHERE from_user_id = $1 AND to_user_id = $2
		)
	`
	var ok bool
	if err := sqlx.GetContext(ctx, r.q, &ok, query, userID, friendID); err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return ok, nil
}

// Friends retrieves a user's friends ordered by name.
func (r *UserRepository) Friends(ctx context.Context, userID string) ([]User, error) {
	query := `
		SELECT u.spotify_id, u.user_name, u.profile_image, u.past_wraps, u.last_spotify_wrapped,
			u.personality_description, u.wrapped_id
		FROM spotify_users u
		JOIN spotify_user_friends f ON f.to_user_id = u.spotify_id
		WHERE f.from_user_id = $1
		ORDER BY u.user_name
	`
	var friends []User
	if err := sqlx.SelectContext(ctx, r.q, &friends, query, userID); err != nil {
		return nil, fmt.Errorf("querying friends: %w", err)
	}
	return friends, nil
}

// Delete removes a user. Registered observers are told first; they cannot
// stop the deletion. Summaries, credentials, sessions and friend edges cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	user, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, o := range r.observers {
		o.UserDeleting(ctx, user)
	}

	result, err := r.q.ExecContext(ctx, `DELETE FROM spotify_users WHERE spotify_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return expectRow(result)
}

// fillJSONDefaults mirrors the column defaults for callers that leave the blobs empty.
func fillJSONDefaults(user *User) {
	if len(user.PastWraps) == 0 {
		user.PastWraps = types.JSONText(`[]`)
	}
	if len(user.LastSpotifyWrapped) == 0 {
		user.LastSpotifyWrapped = types.JSONText(`{}`)
	}
}

// expectRow maps a zero-row write to ErrNotFound.
func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
