package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// ErrInvalidCredentials is returned when a staff login does not match.
var ErrInvalidCredentials = errors.New("invalid staff credentials")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// StaffStore looks up staff accounts. *db.StaffRepository satisfies it.
type StaffStore interface {
	GetByUsername(ctx context.Context, username string) (*db.StaffUser, error)
}

// StaffAuthenticator verifies staff logins.
type StaffAuthenticator struct {
	store StaffStore
}

// NewStaffAuthenticator creates a StaffAuthenticator backed by store.
func NewStaffAuthenticator(store StaffStore) *StaffAuthenticator {
	return &StaffAuthenticator{store: store}
}

// Authenticate returns the staff account for username when password matches.
func (a *StaffAuthenticator) Authenticate(ctx context.Context, username, password string) (*db.StaffUser, error) {
	staff, err := a.store.GetByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up staff user: %w", err)
	}
	if !CheckPassword(staff.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return staff, nil
}
