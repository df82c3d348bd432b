package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyDSNIsInMemory(t *testing.T) {
	m, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryRepositoryManager{}, m)
	assert.NoError(t, m.RunMigrations(context.Background()))
	assert.NoError(t, m.Close())
}

func TestNew_DSNIsPostgres(t *testing.T) {
	m, err := New("postgres://u:p@127.0.0.1:1/db?sslmode=disable")
	require.NoError(t, err)
	defer m.Close()
	assert.IsType(t, &PostgresRepositoryManager{}, m)
}

func TestPostgres_FactoriesReturnConcreteRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewPostgresRepositoryManagerWithDB(db)
	assert.IsType(t, &accounts.PostgresRepository{}, m.Accounts())
	assert.IsType(t, &records.PostgresRepository{}, m.Records())
}

func TestInMemory_ReposAreShared(t *testing.T) {
	m := NewInMemoryRepositoryManager()
	assert.Same(t, m.Accounts(), m.Accounts())
	assert.Same(t, m.Records(), m.Records())
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var got *sql.DB
	gooseUp = func(ctx context.Context, d *sql.DB) error {
		got = d
		return nil
	}
	m := NewPostgresRepositoryManagerWithDB(db)
	require.NoError(t, m.RunMigrations(context.Background()))
	assert.Same(t, db, got)

	gooseUp = func(ctx context.Context, d *sql.DB) error { return errors.New("boom") }
	err = m.RunMigrations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: boom")
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	m := NewPostgresRepositoryManagerWithDB(db)
	assert.Error(t, m.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, NewInMemoryRepositoryManager().Ping(context.Background()))
}
