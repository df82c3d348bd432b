package personas

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Persona, error)
	Upsert(ctx context.Context, p models.Persona) error
	Delete(ctx context.Context, id string) error
}
