package client

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpenDatabase_CreatesSchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := OpenDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))
	for _, table := range []string{"goose_db_version", "users", "personas", "metadata"} {
		assert.True(t, tableExists(t, db, table), table)
	}
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "users"))
}

func TestInitDatabase_WiresRepositories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.Users.Upsert(ctx, models.UserRow{ID: "u1", LastMod: 1}))
	row, err := repos.Users.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "u1", row.ID)

	require.NoError(t, repos.Personas.Upsert(ctx, models.Persona{ID: "p1", UserID: "u1"}))
	require.NoError(t, repos.Metadata.Set(ctx, "k", []byte("v")))
}
