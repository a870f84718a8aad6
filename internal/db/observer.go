package db

import (
	"context"
	"log/slog"
)

// DeletionObserver is notified before a user row is removed.
type DeletionObserver interface {
	UserDeleting(ctx context.Context, user *User)
}

// DeletionObserverFunc adapts a function to DeletionObserver.
type DeletionObserverFunc func(ctx context.Context, user *User)

// UserDeleting calls f.
func (f DeletionObserverFunc) UserDeleting(ctx context.Context, user *User) {
	f(ctx, user)
}

// LogDeletions returns an observer that writes an audit line for every user deletion.
func LogDeletions(logger *slog.Logger) DeletionObserver {
	return DeletionObserverFunc(func(ctx context.Context, user *User) {
		logger.InfoContext(ctx, "spotify user deletion triggered",
			"user_name", user.UserName,
			"spotify_id", user.SpotifyID,
		)
	})
}
