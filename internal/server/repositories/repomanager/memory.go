package repomanager

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/records"
)

// InMemoryRepositoryManager is used when no DSN is configured. Data lives
// until the process exits.
type InMemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
	records  *records.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		accounts: accounts.NewMemoryRepository(),
		records:  records.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Ping(ctx context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Accounts() accounts.Repository { return m.accounts }

func (m *InMemoryRepositoryManager) Records() records.Repository { return m.records }

func (m *InMemoryRepositoryManager) Close() error { return nil }
