package cart

import (
	"context"

	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Upsert(ctx context.Context, line *models.CartLine, stackable bool) (*models.CartLine, error)
	FindByServer(ctx context.Context, userID uuid.UUID, serverID int64) ([]*models.CartLine, error)
	ListForUpdate(ctx context.Context, userID uuid.UUID) ([]*models.CartLine, error)
	RemoveOwn(ctx context.Context, userID uuid.UUID, lineID int64) error
	Remove(ctx context.Context, lineID int64) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, lineIDs ...int64) error
}
