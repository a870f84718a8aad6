package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/justestif/go-spotify-wrapped/internal/db/migrations"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(driverName); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db.x.DB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
