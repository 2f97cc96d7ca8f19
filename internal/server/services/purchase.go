package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PurchaseService buys single items and exposes the catalog and the
// caller's entitlements.
type PurchaseService struct {
	core
}

func NewPurchaseService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *PurchaseService {
	return &PurchaseService{core: newCore(db, m, cfg, opts)}
}

// quote is a validated, priced purchase of one catalog item.
type quote struct {
	item     *models.CatalogItem
	serverID *int64
	period   models.Period
	quantity int64
	price    int64
}

// resolveQuote resolves the item, its server and its period. A nil periodID
// selects the item's one-time period. Unknown or ineligible references yield
// common.ErrorNotFound; a quantity other than one on a kit or permission
// yields common.ErrInvalidArgument.
func resolveQuote(ctx context.Context, repo catalog.Repository, itemID, serverID int64, periodID *int64, quantity int64) (*quote, error) {
	item, err := repo.Resolve(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !item.IsEligible(serverID) {
		return nil, common.ErrorNotFound
	}
	if quantity != 1 && !item.Kind.Stackable() {
		return nil, common.ErrInvalidArgument
	}

	var (
		period models.Period
		ok     bool
	)
	if periodID != nil {
		period, ok = item.Period(*periodID)
	} else {
		period, ok = item.DefaultPeriod()
	}
	if !ok {
		return nil, common.ErrorNotFound
	}

	price, err := LinePrice(item, period, quantity)
	if err != nil {
		return nil, err
	}

	return &quote{
		item:     item,
		serverID: item.ServerRef(serverID),
		period:   period,
		quantity: quantity,
		price:    price,
	}, nil
}

// entitle grants or extends the entitlement q buys. An active entitlement
// yields common.ErrConflict. An expired one is extended from its previous
// deadline.
func entitle(ctx context.Context, repo entitlements.Repository, userID uuid.UUID, q *quote, now time.Time) (*models.Entitlement, error) {
	current, err := repo.FindCurrent(ctx, userID, q.serverID, q.item.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return repo.Grant(ctx, &models.Entitlement{
			UserID:    userID,
			ServerID:  q.serverID,
			ItemID:    q.item.ID,
			Quantity:  q.quantity,
			ExpiresAt: q.period.ExpiryFrom(now),
		})
	}
	if err != nil {
		return nil, err
	}

	if !current.Expired(now) {
		return nil, common.ErrConflict
	}

	return repo.Extend(ctx, current, q.period.ExpiryFrom(*current.ExpiresAt), q.quantity)
}

// BuyPermission buys one item for serverID (ignored for account-wide items)
// with the given period. Balance, entitlement and the audit entry change
// together or not at all.
func (s *PurchaseService) BuyPermission(ctx context.Context, userID uuid.UUID, ip string, itemID, serverID, periodID int64) (*models.Entitlement, error) {
	started := s.now()

	var (
		result  *models.Entitlement
		price   int64
		balance int64
	)

	err := s.atomically(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		now := s.now()
		ledger := s.repomanager.Users(tx)

		current, err := ledger.LockBalance(ctx, userID)
		if err != nil {
			return err
		}

		q, err := resolveQuote(ctx, s.repomanager.Catalog(tx), itemID, serverID, &periodID, 1)
		if err != nil {
			return err
		}
		if q.price > current {
			return common.ErrInsufficientFunds
		}

		ent, err := entitle(ctx, s.repomanager.Entitlements(tx), userID, q, now)
		if err != nil {
			return err
		}

		if balance, err = ledger.Debit(ctx, userID, q.price); err != nil {
			return err
		}

		if _, err := s.repomanager.History(tx).Record(ctx, &models.HistoryEntry{
			UserID:  userID,
			IP:      ip,
			Payload: models.PurchasePayload(q.item, q.serverID, q.period.ID, q.quantity),
		}); err != nil {
			return err
		}

		result, price = ent, q.price
		return nil
	})

	s.observe(models.SourceSingle, err, price, started)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "purchase committed", "user_id", userID, "item_id", itemID, "price", price, "balance", balance)
	s.announce(ctx, models.PurchaseCompleted{
		UserID:       userID,
		IP:           ip,
		Source:       models.SourceSingle,
		Total:        price,
		Balance:      balance,
		Entitlements: []*models.Entitlement{result},
		At:           s.now().UTC(),
	})

	return result, nil
}

// Entitlements lists the user's entitlements, expired ones included.
func (s *PurchaseService) Entitlements(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error) {
	return s.repomanager.Entitlements(s.db).ListByUser(ctx, userID)
}

// MarkDelivered records that a game server has applied the entitlement.
func (s *PurchaseService) MarkDelivered(ctx context.Context, entitlementID int64) error {
	return s.repomanager.Entitlements(s.db).MarkDelivered(ctx, entitlementID, s.now())
}

// CatalogByServer lists what can be bought on serverID.
func (s *PurchaseService) CatalogByServer(ctx context.Context, serverID int64) ([]*models.CatalogItem, error) {
	return s.repomanager.Catalog(s.db).ListByServer(ctx, serverID)
}
