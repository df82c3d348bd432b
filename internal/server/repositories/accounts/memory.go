package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]models.Account
	byAuth map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]models.Account),
		byAuth: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAuth[acc.Auth]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.byID[acc.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	acc.CreatedAt = time.Now().UTC()
	r.byID[acc.ID] = *acc
	r.byAuth[acc.Auth] = acc.ID
	return acc, nil
}

func (r *MemoryRepository) GetByAuth(ctx context.Context, auth string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAuth[auth]
	if !ok {
		return nil, common.ErrorNotFound
	}
	acc := r.byID[id]
	return &acc, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &acc, nil
}
