// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the purchasing account. Balance is kept in minor units and is
// mutated only through the users repository's Debit/Credit.
type User struct {
	ID        uuid.UUID
	UserName  string
	Balance   int64
	CreatedAt time.Time
}
