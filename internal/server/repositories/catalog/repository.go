package catalog

import (
	"context"

	"github.com/dmitrijs2005/unicore/internal/server/models"
)

// Repository is the read-only catalog store.
type Repository interface {
	Resolve(ctx context.Context, itemID int64) (*models.CatalogItem, error)
	PeriodsFor(ctx context.Context, itemID int64) ([]models.Period, error)
	ListByServer(ctx context.Context, serverID int64) ([]*models.CatalogItem, error)
}
