package db

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// User represents a Spotify user profile.
type User struct {
	SpotifyID              string         `db:"spotify_id" json:"spotify_id"`
	UserName               string         `db:"user_name" json:"user_name"`
	ProfileImage           *string        `db:"profile_image" json:"profile_image,omitempty"` // nullable
	PastWraps              types.JSONText `db:"past_wraps" json:"past_wraps"`
	LastSpotifyWrapped     types.JSONText `db:"last_spotify_wrapped" json:"last_spotify_wrapped"`
	PersonalityDescription *string        `db:"personality_description" json:"personality_description,omitempty"` // nullable
	WrappedID              string         `db:"wrapped_id" json:"wrapped_id"`
}

// FeedbackStatus is the lifecycle state of a feedback record.
type FeedbackStatus string

// Feedback statuses.
const (
	StatusNew       FeedbackStatus = "new"
	StatusRead      FeedbackStatus = "read"
	StatusResponded FeedbackStatus = "responded"
)

// Valid reports whether s is a known status.
func (s FeedbackStatus) Valid() bool {
	switch s {
	case StatusNew, StatusRead, StatusResponded:
		return true
	}
	return false
}

// Feedback represents a message submitted through the feedback form.
type Feedback struct {
	ID              int64          `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Email           string         `db:"email" json:"email"`
	Message         string         `db:"message" json:"message"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	Status          FeedbackStatus `db:"status" json:"status"`
	AdminResponse   *string        `db:"admin_response" json:"admin_response,omitempty"`       // nullable
	AdminResponseAt *time.Time     `db:"admin_response_at" json:"admin_response_at,omitempty"` // nullable
	AdminID         *int64         `db:"admin_id" json:"admin_id,omitempty"`                   // nullable, cleared when the staff row goes
}

// MarkAsResponded records a staff response on the in-memory record.
func (f *Feedback) MarkAsResponded(staffID int64, response string, now time.Time) {
	f.Status = StatusResponded
	f.AdminResponse = &response
	f.AdminResponseAt = &now
	f.AdminID = &staffID
}

// WrapTrack is one entry of a summary's track list.
type WrapTrack struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	PreviewURL string   `json:"preview_url,omitempty"`
	Popularity int      `json:"popularity"`
}

// WrapArtist is one entry of a summary's artist list.
type WrapArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	ImageURL   string   `json:"image_url,omitempty"`
	Popularity int      `json:"popularity"`
}

// GenreCount is one entry of a summary's genre list.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SavedWrap is a point-in-time snapshot of a user's listening summary.
type SavedWrap struct {
	ID               int64              `db:"id" json:"id"`
	UserID           string             `db:"user_id" json:"user_id"`
	Title            string             `db:"title" json:"title"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	TracksData       JSON[[]WrapTrack]  `db:"tracks_data" json:"tracks_data"`
	ArtistsData      JSON[[]WrapArtist] `db:"artists_data" json:"artists_data"`
	GenresData       JSON[[]GenreCount] `db:"genres_data" json:"genres_data"`
	TimeRange        string             `db:"time_range" json:"time_range"`
	HolidayTheme     *string            `db:"holiday_theme" json:"holiday_theme,omitempty"`           // nullable
	PersonalityInfo  *string            `db:"personality_info" json:"personality_info,omitempty"`     // nullable
	FriendTracksData *JSON[[]WrapTrack] `db:"friend_tracks_data" json:"friend_tracks_data,omitempty"` // nullable
	Comp             *string            `db:"comp" json:"comp,omitempty"`                             // nullable
}

// SpotifyAuth holds a user's Spotify OAuth credentials.
type SpotifyAuth struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	TokenExpiry  time.Time `db:"token_expiry"`
}

// IsTokenValid reports whether the stored access token can be used without refreshing.
func (a *SpotifyAuth) IsTokenValid() bool {
	return a.IsValidAt(time.Now())
}

// IsValidAt reports whether now is strictly before the token expiry.
func (a *SpotifyAuth) IsValidAt(now time.Time) bool {
	return now.Before(a.TokenExpiry)
}

// StaffUser is an administrator allowed to handle feedback.
type StaffUser struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// WebSession represents an authenticated browser session.
type WebSession struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
