package client

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
)

// Client is the remote API used by the session and the sync reconciler.
type Client interface {
	Close() error
	Join(ctx context.Context, auth string) (*models.User, error)
	TestAuth(ctx context.Context) error
	FetchUser(ctx context.Context) (*models.SyncRecord, error)
	PushRecord(ctx context.Context, rec models.SyncRecord) (*models.SyncRecord, error)
	DeleteRecord(ctx context.Context, recordType, id string) error
	Subscribe(ctx context.Context, since int64) (<-chan models.SyncRecord, error)
	Ping(ctx context.Context) error
	SetAuth(auth string)
	ClearAuth()
}
