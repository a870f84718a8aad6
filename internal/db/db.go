// Package db provides PostgreSQL persistence for the Spotify Wrapped service.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// driverName is the database/sql driver registered by pgx/v5/stdlib.
const driverName = "pgx"

// DB wraps a PostgreSQL connection pool.
type DB struct {
	x         *sqlx.DB
	observers []DeletionObserver
}

// Option configures a DB.
type Option func(*DB)

// WithDeletionObserver registers an observer notified before a user row is deleted.
func WithDeletionObserver(o DeletionObserver) Option {
	return func(db *DB) {
		if o != nil {
			db.observers = append(db.observers, o)
		}
	}
}

// Open connects to PostgreSQL through the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*DB, error) {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	x := sqlx.NewDb(stdlib.OpenDB(*config), driverName)

	// Verify connection
	if err := x.PingContext(ctx); err != nil {
		x.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return New(x, opts...), nil
}

// New wraps an existing sqlx handle. Tests use it with go-sqlmock.
func New(x *sqlx.DB, opts ...Option) *DB {
	db := &DB{x: x}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.x.Close()
}

// Users returns a UserRepository.
func (db *DB) Users() *UserRepository {
	return &UserRepository{q: db.x, observers: db.observers}
}

// Feedback returns a FeedbackRepository.
func (db *DB) Feedback() *FeedbackRepository {
	return &FeedbackRepository{q: db.x}
}

// Wraps returns a WrapRepository.
func (db *DB) Wraps() *WrapRepository {
	return &WrapRepository{q: db.x}
}

// Auth returns an AuthRepository.
func (db *DB) Auth() *AuthRepository {
	return &AuthRepository{q: db.x}
}

// Staff returns a StaffRepository.
func (db *DB) Staff() *StaffRepository {
	return &StaffRepository{q: db.x}
}

// Sessions returns a SessionRepository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{q: db.x}
}

// Tx exposes repositories bound to a single transaction.
type Tx struct {
	x         *sqlx.Tx
	observers []DeletionObserver
}

// Users returns a UserRepository bound to the transaction.
func (tx *Tx) Users() *UserRepository {
	return &UserRepository{q: tx.x, observers: tx.observers}
}

// Wraps returns a WrapRepository bound to the transaction.
func (tx *Tx) Wraps() *WrapRepository {
	return &WrapRepository{q: tx.x}
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are rethrown.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	x, err := db.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = x.Rollback()
			panic(p)
		}
		if err != nil {
			_ = x.Rollback()
			return
		}
		if cerr := x.Commit(); cerr != nil {
			err = fmt.Errorf("committing transaction: %w", cerr)
		}
	}()

	return fn(&Tx{x: x, observers: db.observers})
}
