package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryKind tags an audit entry.
type HistoryKind string

const (
	HistoryProductPurchase            HistoryKind = "product_purchase"
	HistoryKitPurchase                HistoryKind = "kit_purchase"
	HistoryPermissionPurchase         HistoryKind = "permission_purchase"
	HistoryPayment                    HistoryKind = "payment"
	HistoryTransferBetweenUsers       HistoryKind = "transfer_between_users"
	HistoryTransferAccountToServer    HistoryKind = "transfer_account_to_server"
	HistoryTransferUserToServerTarget HistoryKind = "transfer_user_to_server_target"
)

// HistoryPayload is the kind-specific part of an audit entry. The set of
// implementations is closed; each carries only the fields its kind needs.
type HistoryPayload interface {
	Kind() HistoryKind
	historyPayload()
}

type ProductPurchase struct {
	ProductID int64
	ServerID  *int64
	Amount    int64
}

type KitPurchase struct {
	KitID    int64
	ServerID *int64
}

type PermissionPurchase struct {
	PermissionID int64
	ServerID     *int64
	PeriodID     int64
}

type Payment struct {
	PaymentID string
	Amount    int64
}

type TransferBetweenUsers struct {
	TargetID uuid.UUID
	Amount   int64
}

type TransferAccountToServer struct {
	ServerID int64
	Amount   int64
}

type TransferUserToServerTarget struct {
	ServerID int64
	TargetID uuid.UUID
	Amount   int64
}

func (ProductPurchase) Kind() HistoryKind            { return HistoryProductPurchase }
func (KitPurchase) Kind() HistoryKind                { return HistoryKitPurchase }
func (PermissionPurchase) Kind() HistoryKind         { return HistoryPermissionPurchase }
func (Payment) Kind() HistoryKind                    { return HistoryPayment }
func (TransferBetweenUsers) Kind() HistoryKind       { return HistoryTransferBetweenUsers }
func (TransferAccountToServer) Kind() HistoryKind    { return HistoryTransferAccountToServer }
func (TransferUserToServerTarget) Kind() HistoryKind { return HistoryTransferUserToServerTarget }

func (ProductPurchase) historyPayload()            {}
func (KitPurchase) historyPayload()                {}
func (PermissionPurchase) historyPayload()         {}
func (Payment) historyPayload()                    {}
func (TransferBetweenUsers) historyPayload()       {}
func (TransferAccountToServer) historyPayload()    {}
func (TransferUserToServerTarget) historyPayload() {}

// PurchasePayload builds the audit payload for buying item on server with
// period; quantity is recorded for products only.
func PurchasePayload(item *CatalogItem, serverID *int64, periodID int64, quantity int64) HistoryPayload {
	switch item.Kind {
	case ItemProduct:
		return ProductPurchase{ProductID: item.ID, ServerID: serverID, Amount: quantity}
	case ItemKit:
		return KitPurchase{KitID: item.ID, ServerID: serverID}
	default:
		return PermissionPurchase{PermissionID: item.ID, ServerID: serverID, PeriodID: periodID}
	}
}

// HistoryEntry is an immutable audit record.
type HistoryEntry struct {
	ID        int64
	UserID    uuid.UUID
	IP        string
	CreatedAt time.Time
	Payload   HistoryPayload
}
