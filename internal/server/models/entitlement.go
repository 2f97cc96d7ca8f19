package models

import (
	"time"

	"github.com/google/uuid"
)

// Entitlement is a durable grant of an item to a user, optionally scoped to a
// server and optionally time-bounded. There is at most one row per
// (user, server, item).
type Entitlement struct {
	ID       int64
	UserID   uuid.UUID
	ServerID *int64
	ItemID   int64
	Quantity int64
	// ExpiresAt is nil for permanent grants.
	ExpiresAt *time.Time
	// DeliveredAt is set once a game server has applied the grant.
	DeliveredAt *time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the grant has a deadline that is not after now.
// Permanent grants never expire.
func (e *Entitlement) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}
