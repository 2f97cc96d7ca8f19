package history

import (
	"context"
	"time"

	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the append-only audit log.
type Repository interface {
	Record(ctx context.Context, entry *models.HistoryEntry) (*models.HistoryEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.HistoryEntry, error)
}
