package users

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE users (
  key          TEXT PRIMARY KEY,
  id           TEXT NOT NULL DEFAULT '',
  cid          TEXT NOT NULL DEFAULT '',
  body         TEXT NOT NULL DEFAULT '',
  last_mod     INTEGER NOT NULL DEFAULT 0,
  local_change INTEGER NOT NULL DEFAULT 0
);`

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func TestUpsertAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, models.UserRow{ID: "u1", CID: "c1", Body: "b1", LastMod: 10, LocalChange: true}))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.UserRow{Key: models.UserKey, ID: "u1", CID: "c1", Body: "b1", LastMod: 10, LocalChange: true}, *got)

	require.NoError(t, r.Upsert(ctx, models.UserRow{Key: models.UserKey, ID: "u1", Body: "b2", LastMod: 20}))
	got, err = r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b2", got.Body)
	assert.Equal(t, int64(20), got.LastMod)
	assert.False(t, got.LocalChange)
}

func TestGet_Absent_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	got, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSinceLastMod(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, models.UserRow{ID: "u1", LastMod: 100}))

	tests := []struct {
		name      string
		watermark int64
		found     bool
	}{
		{"older watermark", 50, true},
		{"equal watermark", 100, true},
		{"newer watermark", 101, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.SinceLastMod(ctx, tc.watermark)
			require.NoError(t, err)
			if tc.found {
				require.NotNil(t, got)
				assert.Equal(t, "u1", got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestClaimLocalChange_ClearsFlagOnce(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, models.UserRow{ID: "u1", Body: "b", LocalChange: true}))

	got, err := r.ClaimLocalChange(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LocalChange)
	assert.Equal(t, "u1", got.ID)

	again, err := r.ClaimLocalChange(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)

	stored, err := r.Get(ctx)
	require.NoError(t, err)
	assert.False(t, stored.LocalChange)
}

func TestClaimLocalChange_ConcurrentCallersClaimOnce(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)

	r := NewSQLiteRepository(db)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		require.NoError(t, r.Upsert(ctx, models.UserRow{ID: "u1", LocalChange: true}))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			claimed int
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				row, err := r.ClaimLocalChange(ctx)
				assert.NoError(t, err)
				if row != nil {
					mu.Lock()
					claimed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, claimed, "round %d", round)
	}
}

func TestMarkLocalChange(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, models.UserRow{ID: "u1"}))

	require.NoError(t, r.MarkLocalChange(ctx))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.LocalChange)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, models.UserRow{ID: "u1"}))

	require.NoError(t, r.Delete(ctx))
	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Delete(ctx))
}

func TestErrorsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	r := NewSQLiteRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM users WHERE key`).WillReturnError(sql.ErrConnDone)
	_, err = r.Get(ctx)
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "failed to get user")

	mock.ExpectQuery(`UPDATE users SET local_change = 0`).WillReturnError(sql.ErrConnDone)
	_, err = r.ClaimLocalChange(ctx)
	require.ErrorIs(t, err, sql.ErrConnDone)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(sql.ErrConnDone)
	err = r.Upsert(ctx, models.UserRow{ID: "u1"})
	require.ErrorIs(t, err, sql.ErrConnDone)

	mock.ExpectExec(`UPDATE users SET local_change = 1`).WillReturnError(sql.ErrConnDone)
	require.ErrorIs(t, r.MarkLocalChange(ctx), sql.ErrConnDone)

	require.NoError(t, mock.ExpectationsWereMet())
}
