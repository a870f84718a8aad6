package wrapped

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// dbStore adapts *db.DB to Store.
type dbStore struct {
	db *db.DB
}

// NewDBStore returns a Store backed by database.
func NewDBStore(database *db.DB) Store {
	return &dbStore{db: database}
}

// Save inserts wrap and records its summary on the owner in one transaction.
func (s *dbStore) Save(ctx context.Context, wrap *db.SavedWrap) error {
	return s.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := tx.Wraps().Create(ctx, wrap); err != nil {
			return err
		}
		summary, err := json.Marshal(SummaryOf(wrap))
		if err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		return tx.Users().RecordWrap(ctx, wrap.UserID, summary)
	})
}

func (s *dbStore) Get(ctx context.Context, userID string, id int64) (*db.SavedWrap, error) {
	return s.db.Wraps().Get(ctx, userID, id)
}

func (s *dbStore) List(ctx context.Context, userID string) ([]db.SavedWrap, error) {
	return s.db.Wraps().ListForUser(ctx, userID)
}

func (s *dbStore) Latest(ctx context.Context, userID string) (*db.SavedWrap, error) {
	return s.db.Wraps().LatestForUser(ctx, userID)
}

func (s *dbStore) Delete(ctx context.Context, userID string, id int64) error {
	return s.db.Wraps().Delete(ctx, userID, id)
}

func (s *dbStore) UserByWrappedID(ctx context.Context, wrappedID string) (*db.User, error) {
	return s.db.Users().GetByWrappedID(ctx, wrappedID)
}

func (s *dbStore) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	return s.db.Users().IsFriend(ctx, userID, friendID)
}
