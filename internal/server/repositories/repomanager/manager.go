// Package repomanager selects the storage backend for the server.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/records"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Accounts() accounts.Repository
	Records() records.Repository
	Close() error
}

// New returns the PostgreSQL manager for a non-empty dsn and the in-memory
// manager otherwise.
func New(dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewInMemoryRepositoryManager(), nil
	}
	return NewPostgresRepositoryManager(dsn)
}
