package users

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context) (*models.UserRow, error)
	SinceLastMod(ctx context.Context, watermark int64) (*models.UserRow, error)
	ClaimLocalChange(ctx context.Context) (*models.UserRow, error)
	Upsert(ctx context.Context, row models.UserRow) error
	MarkLocalChange(ctx context.Context) error
	Delete(ctx context.Context) error
}
