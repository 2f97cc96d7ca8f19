package entitlements

import (
	"context"
	"time"

	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

// Repository stores one entitlement per (user, server-or-null, item).
type Repository interface {
	FindCurrent(ctx context.Context, userID uuid.UUID, serverID *int64, itemID int64) (*models.Entitlement, error)
	Grant(ctx context.Context, e *models.Entitlement) (*models.Entitlement, error)
	Extend(ctx context.Context, e *models.Entitlement, expiresAt *time.Time, quantity int64) (*models.Entitlement, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error)
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
}
