package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseCompleted is announced after a purchase transaction has committed.
type PurchaseCompleted struct {
	UserID       uuid.UUID      `json:"user_id"`
	IP           string         `json:"ip"`
	Source       string         `json:"source"`
	Total        int64          `json:"total"`
	Balance      int64          `json:"balance"`
	Entitlements []*Entitlement `json:"entitlements"`
	At           time.Time      `json:"at"`
}

// Purchase sources.
const (
	SourceSingle = "single"
	SourceCart   = "cart"
)
