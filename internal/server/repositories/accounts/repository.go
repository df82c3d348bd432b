// Package accounts stores joined accounts keyed by id and by auth token.
//
// Lookups of absent accounts return common.ErrorNotFound; creating an
// account whose auth token is already taken returns common.ErrorAlreadyExists.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, acc *models.Account) (*models.Account, error)
	GetByAuth(ctx context.Context, auth string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
