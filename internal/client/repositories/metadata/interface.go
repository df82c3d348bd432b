package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyLastLocalSync = "last_local_sync"
	CookiePrefix     = "cookie:"
)

// Repository is a small key/value store for client state that is not part of
// the user record: session cookies and sync watermarks. Get returns (nil, nil)
// for an absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	GetInt64(ctx context.Context, key string) (int64, error)
	SetInt64(ctx context.Context, key string, v int64) error
}
