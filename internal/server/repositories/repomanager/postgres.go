package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/records"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories over one
// connection pool.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// gooseUp is a seam for testing the migration run.
var gooseUp = func(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// NewPostgresRepositoryManager opens dsn with the pgx driver. The pool is
// lazy; the first query or RunMigrations connects.
func NewPostgresRepositoryManager(dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &PostgresRepositoryManager{db: db}, nil
}

// NewPostgresRepositoryManagerWithDB wraps an already opened pool.
func NewPostgresRepositoryManagerWithDB(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := gooseUp(ctx, m.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *PostgresRepositoryManager) Accounts() accounts.Repository {
	return accounts.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) Records() records.Repository {
	return records.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
