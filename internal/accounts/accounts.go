// Package accounts manages Spotify user profiles and the friend graph.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/spotify"
)

const (
	wrappedIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	wrappedIDLength   = 10
	maxIDAttempts     = 5
)

var (
	// ErrSelfFriend is returned when a user tries to befriend themselves.
	ErrSelfFriend = errors.New("cannot add yourself as a friend")

	// ErrIDExhausted is returned when no free public id was found.
	ErrIDExhausted = errors.New("could not allocate a unique wrapped id")
)

// UserStore persists users and friend edges. *db.UserRepository satisfies it.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
	Get(ctx context.Context, id string) (*db.User, error)
	GetByWrappedID(ctx context.Context, wrappedID string) (*db.User, error)
	UpdateProfile(ctx context.Context, id string, upd db.ProfileUpdate) error
	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	Friends(ctx context.Context, userID string) ([]db.User, error)
	Delete(ctx context.Context, id string) error
}

// TokenSaver stores the OAuth token obtained at login. *auth.Refresher satisfies it.
type TokenSaver interface {
	SaveToken(ctx context.Context, userID string, token *oauth2.Token) error
}

// Service handles account operations.
type Service struct {
	users  UserStore
	tokens TokenSaver
	logger *slog.Logger
	newID  func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithIDGenerator replaces the public id generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// New creates an account Service.
func New(users UserStore, tokens TokenSaver, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		logger: slog.Default(),
		newID:  NewWrappedID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWrappedID returns a random 10 character alphanumeric public id.
func NewWrappedID() (string, error) {
	id, err := gonanoid.Generate(wrappedIDAlphabet, wrappedIDLength)
	if err != nil {
		return "", fmt.Errorf("generating wrapped id: %w", err)
	}
	return id, nil
}

// Login records a successful Spotify login: the user row is created or its
// display fields refreshed, then the token pair is stored.
// Returning users keep their wrapped_id.
func (s *Service) Login(ctx context.Context, profile *spotify.Profile, token *oauth2.Token) (*db.User, error) {
	user := &db.User{
		SpotifyID: profile.ID,
		UserName:  profile.DisplayName,
	}
	if profile.ImageURL != "" {
		image := profile.ImageURL
		user.ProfileImage = &image
	}

	if err := s.upsertWithFreshID(ctx, user); err != nil {
		return nil, err
	}

	if err := s.tokens.SaveToken(ctx, user.SpotifyID, token); err != nil {
		return nil, fmt.Errorf("storing login token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "spotify_id", user.SpotifyID, "wrapped_id", user.WrappedID)
	return user, nil
}

// upsertWithFreshID retries the upsert while the candidate public id collides.
func (s *Service) upsertWithFreshID(ctx context.Context, user *db.User) error {
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return err
		}
		user.WrappedID = id

		err = s.users.Upsert(ctx, user)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, db.WrappedIDConstraint) {
			return fmt.Errorf("saving user: %w", err)
		}
		s.logger.WarnContext(ctx, "wrapped id collision", "attempt", attempt)
	}
	return ErrIDExhausted
}

// Profile returns the stored user.
func (s *Service) Profile(ctx context.Context, userID string) (*db.User, error) {
	return s.users.Get(ctx, userID)
}

// UpdatePersonality stores the personality text shown on the user's profile.
func (s *Service) UpdatePersonality(ctx context.Context, userID, text string) error {
	return s.users.UpdateProfile(ctx, userID, db.ProfileUpdate{PersonalityDescription: &text})
}

// Friends lists the user's friends ordered by name.
func (s *Service) Friends(ctx context.Context, userID string) ([]db.User, error) {
	return s.users.Friends(ctx, userID)
}

// AddFriend befriends the user identified by the public wrappedID.
func (s *Service) AddFriend(ctx context.Context, userID, wrappedID string) (*db.User, error) {
	friend, err := s.users.GetByWrappedID(ctx, wrappedID)
	if err != nil {
		return nil, err
	}
	if friend.SpotifyID == userID {
		return nil, ErrSelfFriend
	}
	if err := s.users.AddFriend(ctx, userID, friend.SpotifyID); err != nil {
		return nil, err
	}
	return friend, nil
}

// RemoveFriend drops the friendship with the user identified by wrappedID.
func (s *Service) RemoveFriend(ctx context.Context, userID, wrappedID string) error {
	friend, err := s.users.GetByWrappedID(ctx, wrappedID)
	if err != nil {
		return err
	}
	return s.users.RemoveFriend(ctx, userID, friend.SpotifyID)
}

// DeleteAccount removes the user and everything that belongs to it.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "account deleted", "spotify_id", userID)
	return nil
}
