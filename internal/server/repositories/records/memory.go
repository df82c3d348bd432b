package records

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

type recordKey struct {
	userID, recordType, id string
}

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[recordKey]models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[recordKey]models.Record)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, rec models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Deleted = false
	r.data[recordKey{rec.UserID, rec.Type, rec.ID}] = rec
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID, recordType, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[recordKey{userID, recordType, id}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, recordType, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := recordKey{userID, recordType, id}
	if _, ok := r.data[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.data, k)
	return nil
}

func (r *MemoryRepository) ListSince(ctx context.Context, userID string, since int64) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Record
	for k, rec := range r.data {
		if k.userID == userID && rec.LastMod > since {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMod < out[j].LastMod })
	return out, nil
}
