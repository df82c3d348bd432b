package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/personas"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/users"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories groups the local store repositories over one database.
type Repositories struct {
	DB       *sql.DB
	Users    users.Repository
	Personas personas.Repository
	Metadata metadata.Repository
}

// Close closes the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrations provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// OpenDatabase opens the SQLite database at dsn and migrates it. A single
// connection serializes every access to the user row.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

// InitDatabase opens the database and builds its repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := OpenDatabase(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Users:    users.NewSQLiteRepository(db),
		Personas: personas.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}
