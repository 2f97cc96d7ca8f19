package grpc

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/unicore/internal/server/models"
)

type Empty struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type Entitlement struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"item_id"`
	ServerID    *int64     `json:"server_id,omitempty"`
	Quantity    int64      `json:"quantity"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

type CartLine struct {
	ID       int64  `json:"id"`
	ItemID   int64  `json:"item_id"`
	ServerID *int64 `json:"server_id,omitempty"`
	PeriodID *int64 `json:"period_id,omitempty"`
	Quantity int64  `json:"quantity"`
}

type Period struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Multiplier    int64  `json:"multiplier"`
	ExpireSeconds *int64 `json:"expire_seconds,omitempty"`
}

type CatalogItem struct {
	ID          int64    `json:"id"`
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       int64    `json:"price"`
	Discount    int64    `json:"discount"`
	Grants      []string `json:"grants,omitempty"`
	AccountWide bool     `json:"account_wide"`
	Periods     []Period `json:"periods"`
}

type HistoryEntry struct {
	ID        int64           `json:"id"`
	Kind      string          `json:"kind"`
	IP        string          `json:"ip"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

type BuyPermissionRequest struct {
	ItemID   int64 `json:"item_id"`
	ServerID int64 `json:"server_id"`
	PeriodID int64 `json:"period_id"`
}

type BuyPermissionResponse struct {
	Entitlement *Entitlement `json:"entitlement"`
}

type CartAddRequest struct {
	ItemID   int64  `json:"item_id"`
	ServerID int64  `json:"server_id"`
	PeriodID *int64 `json:"period_id,omitempty"`
	Quantity int64  `json:"quantity"`
}

type CartAddResponse struct {
	Line *CartLine `json:"line"`
}

type CartFindByServerRequest struct {
	ServerID int64 `json:"server_id"`
}

type CartLinesResponse struct {
	Lines []*CartLine `json:"lines"`
}

type CartRemoveOwnRequest struct {
	LineID int64 `json:"line_id"`
}

type CartClearResponse struct {
	Removed int64 `json:"removed"`
}

type AdminCartClearRequest struct {
	UserID string `json:"user_id"`
}

type AdminCartRemoveRequest struct {
	LineID int64 `json:"line_id"`
}

type EntitlementsResponse struct {
	Entitlements []*Entitlement `json:"entitlements"`
}

type CatalogByServerRequest struct {
	ServerID int64 `json:"server_id"`
}

type CatalogResponse struct {
	Items []*CatalogItem `json:"items"`
}

type HistoryRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type HistoryResponse struct {
	Entries []*HistoryEntry `json:"entries"`
}

type TransferRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int64  `json:"amount"`
}

type AdminApplyPaymentRequest struct {
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

type AdminMarkDeliveredRequest struct {
	EntitlementID int64 `json:"entitlement_id"`
}

func toEntitlement(e *models.Entitlement) *Entitlement {
	if e == nil {
		return nil
	}
	return &Entitlement{
		ID:          e.ID,
		ItemID:      e.ItemID,
		ServerID:    e.ServerID,
		Quantity:    e.Quantity,
		ExpiresAt:   e.ExpiresAt,
		DeliveredAt: e.DeliveredAt,
	}
}

func toEntitlements(in []*models.Entitlement) []*Entitlement {
	out := make([]*Entitlement, 0, len(in))
	for _, e := range in {
		out = append(out, toEntitlement(e))
	}
	return out
}

func toCartLine(l *models.CartLine) *CartLine {
	if l == nil {
		return nil
	}
	return &CartLine{
		ID:       l.ID,
		ItemID:   l.ItemID,
		ServerID: l.ServerID,
		PeriodID: l.PeriodID,
		Quantity: l.Quantity,
	}
}

func toCartLines(in []*models.CartLine) []*CartLine {
	out := make([]*CartLine, 0, len(in))
	for _, l := range in {
		out = append(out, toCartLine(l))
	}
	return out
}

func toCatalogItems(in []*models.CatalogItem) []*CatalogItem {
	out := make([]*CatalogItem, 0, len(in))
	for _, i := range in {
		periods := make([]Period, 0, len(i.Periods))
		for _, p := range i.Periods {
			periods = append(periods, Period{
				ID:            p.ID,
				Name:          p.Name,
				Multiplier:    int64(p.Multiplier),
				ExpireSeconds: p.ExpireSeconds,
			})
		}
		out = append(out, &CatalogItem{
			ID:          i.ID,
			Kind:        string(i.Kind),
			Name:        i.Name,
			Description: i.Description,
			Price:       i.Price,
			Discount:    i.Discount,
			Grants:      i.Grants,
			AccountWide: i.AccountWide,
			Periods:     periods,
		})
	}
	return out
}

func toHistoryEntries(in []*models.HistoryEntry) ([]*HistoryEntry, error) {
	out := make([]*HistoryEntry, 0, len(in))
	for _, e := range in {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, &HistoryEntry{
			ID:        e.ID,
			Kind:      string(e.Payload.Kind()),
			IP:        e.IP,
			CreatedAt: e.CreatedAt,
			Payload:   payload,
		})
	}
	return out, nil
}
