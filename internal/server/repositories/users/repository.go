package users

import (
	"context"

	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the balance ledger. Debit and Credit are single atomic
// statements; run them on the transaction of the enclosing purchase.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockBalance(ctx context.Context, id uuid.UUID) (int64, error)
	Debit(ctx context.Context, id uuid.UUID, amount int64) (int64, error)
	Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error)
}
