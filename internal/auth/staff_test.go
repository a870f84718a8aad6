package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

type staffStoreFunc func(ctx context.Context, username string) (*db.StaffUser, error)

func (f staffStoreFunc) GetByUsername(ctx context.Context, username string) (*db.StaffUser, error) {
	return f(ctx, username)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestStaffAuthenticator(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	store := staffStoreFunc(func(_ context.Context, username string) (*db.StaffUser, error) {
		switch username {
		case "admin":
			return &db.StaffUser{ID: 1, Username: "admin", PasswordHash: hash}, nil
		case "broken":
			return nil, errors.New("connection refused")
		}
		return nil, db.ErrNotFound
	})
	a := NewStaffAuthenticator(store)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
		wantAny  bool
	}{
		{name: "valid", username: "admin", password: "s3cret"},
		{name: "wrong password", username: "admin", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: "s3cret", wantErr: ErrInvalidCredentials},
		{name: "store failure", username: "broken", password: "x", wantAny: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staff, err := a.Authenticate(context.Background(), tt.username, tt.password)
			switch {
			case tt.wantAny:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrInvalidCredentials)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(1), staff.ID)
			}
		})
	}
}
