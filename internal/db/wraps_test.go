package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wrapRowColumns = []string{
	"id", "user_id", "title", "created_at", "tracks_data", "artists_data", "genres_data",
	"time_range", "holiday_theme", "personality_info", "friend_tracks_data", "comp",
}

func TestWrapRepository_Create(t *testing.T) {
	database, mock := newMockDB(t)
	created := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO saved_wraps .+ RETURNING id, created_at`).
		WithArgs("alice", "Short term", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"short_term", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, created))

	wrap := &SavedWrap{
		UserID:      "alice",
		Title:       "Short term",
		TracksData:  NewJSON([]WrapTrack{{ID: "t1", Name: "Song", Artists: []string{"A"}}}),
		ArtistsData: NewJSON([]WrapArtist{{ID: "a1", Name: "A", Genres: []string{"pop"}}}),
		GenresData:  NewJSON([]GenreCount{{Name: "pop", Count: 1}}),
		TimeRange:   "short_term",
	}
	require.NoError(t, database.Wraps().Create(context.Background(), wrap))
	assert.Equal(t, int64(11), wrap.ID)
	assert.Equal(t, created, wrap.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapRepository_GetIsOwnerScoped(t *testing.T) {
	database, mock := newMockDB(t)
	created := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM saved_wraps WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(11), "alice").
		WillReturnRows(sqlmock.NewRows(wrapRowColumns).AddRow(
			11, "alice", "Short term", created,
			[]byte(`[{"id":"t1","name":"Song","artists":["A"],"popularity":80}]`),
			[]byte(`[]`),
			[]byte(`[{"name":"pop","count":3}]`),
			"short_term", nil, nil,
			[]byte(`[{"id":"t1","name":"Song","artists":["A"],"popularity":80}]`),
			"1 tracks in common with Bob",
		))

	wrap, err := database.Wraps().Get(context.Background(), "alice", 11)
	require.NoError(t, err)
	require.Len(t, wrap.TracksData.V, 1)
	assert.Equal(t, 80, wrap.TracksData.V[0].Popularity)
	assert.Empty(t, wrap.ArtistsData.V)
	assert.Equal(t, []GenreCount{{Name: "pop", Count: 3}}, wrap.GenresData.V)
	require.NotNil(t, wrap.FriendTracksData)
	assert.Len(t, wrap.FriendTracksData.V, 1)
	require.NotNil(t, wrap.Comp)
	assert.Equal(t, "1 tracks in common with Bob", *wrap.Comp)
}

func TestWrapRepository_GetOtherUsersWrap(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM saved_wraps WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(11), "mallory").
		WillReturnRows(sqlmock.NewRows(wrapRowColumns))

	_, err := database.Wraps().Get(context.Background(), "mallory", 11)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWrapRepository_DeleteMissing(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectExec(`DELETE FROM saved_wraps WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(12), "alice").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := database.Wraps().Delete(context.Background(), "alice", 12)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWrapRepository_ListForUser(t *testing.T) {
	database, mock := newMockDB(t)
	created := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM saved_wraps WHERE user_id = \$1 ORDER BY created_at DESC, id DESC`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(wrapRowColumns).
			AddRow(12, "alice", "b", created, []byte(`[]`), []byte(`[]`), []byte(`[]`), "long_term", nil, nil, nil, nil).
			AddRow(11, "alice", "a", created, []byte(`[]`), []byte(`[]`), []byte(`[]`), "short_term", nil, nil, nil, nil))

	wraps, err := database.Wraps().ListForUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, wraps, 2)
	assert.Equal(t, int64(12), wraps[0].ID)
	assert.Nil(t, wraps[0].FriendTracksData)
}

func TestWrapRepository_LatestForUserNone(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM saved_wraps WHERE user_id = \$1 ORDER BY .+ LIMIT 1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(wrapRowColumns))

	_, err := database.Wraps().LatestForUser(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_WithTxCommitsOnSuccess(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM saved_wraps`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.WithTx(context.Background(), func(tx *Tx) error {
		return tx.Wraps().Delete(context.Background(), "alice", 1)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithTxRollsBackOnError(t *testing.T) {
	database, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := database.WithTx(context.Background(), func(*Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithTxRollsBackOnPanic(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = database.WithTx(context.Background(), func(*Tx) error { panic("kaboom") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
