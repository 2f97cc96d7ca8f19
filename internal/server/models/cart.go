package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is a pending purchase. ServerID is nil for account-wide items and
// PeriodID is nil when the item's one-time period applies.
type CartLine struct {
	ID        int64
	UserID    uuid.UUID
	ItemID    int64
	ServerID  *int64
	PeriodID  *int64
	Quantity  int64
	CreatedAt time.Time
}
