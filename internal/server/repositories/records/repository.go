// Package records stores synced records per account.
package records

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

type Repository interface {
	// Upsert writes rec under (UserID, Type, ID).
	Upsert(ctx context.Context, rec models.Record) error
	// Get returns common.ErrorNotFound for an absent record.
	Get(ctx context.Context, userID, recordType, id string) (*models.Record, error)
	// Delete returns common.ErrorNotFound when nothing was deleted.
	Delete(ctx context.Context, userID, recordType, id string) error
	// ListSince returns the account's records with last_mod > since, oldest first.
	ListSince(ctx context.Context, userID string, since int64) ([]models.Record, error)
}
