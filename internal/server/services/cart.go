package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CartService manages pending purchases and checks them out in one
// transaction.
type CartService struct {
	core
}

func NewCartService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *CartService {
	return &CartService{core: newCore(db, m, cfg, opts)}
}

// Add validates the reference and puts it into the cart. Adding a product
// again for the same server and period increases the quantity. Adding a kit
// or permission twice, or the same item with another period, is
// common.ErrConflict.
func (s *CartService) Add(ctx context.Context, userID uuid.UUID, itemID, serverID int64, periodID *int64, quantity int64) (*models.CartLine, error) {
	if quantity <= 0 {
		return nil, common.ErrInvalidArgument
	}

	q, err := resolveQuote(ctx, s.repomanager.Catalog(s.db), itemID, serverID, periodID, quantity)
	if err != nil {
		return nil, err
	}

	return s.repomanager.Cart(s.db).Upsert(ctx, &models.CartLine{
		UserID:   userID,
		ItemID:   q.item.ID,
		ServerID: q.serverID,
		PeriodID: &q.period.ID,
		Quantity: quantity,
	}, q.item.Kind.Stackable())
}

// FindByServer lists the user's lines for serverID and all account-wide lines.
func (s *CartService) FindByServer(ctx context.Context, userID uuid.UUID, serverID int64) ([]*models.CartLine, error) {
	return s.repomanager.Cart(s.db).FindByServer(ctx, userID, serverID)
}

// RemoveOwn deletes one of the user's lines.
func (s *CartService) RemoveOwn(ctx context.Context, userID uuid.UUID, lineID int64) error {
	return s.repomanager.Cart(s.db).RemoveOwn(ctx, userID, lineID)
}

// ClearOwn empties the user's cart.
func (s *CartService) ClearOwn(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repomanager.Cart(s.db).Clear(ctx, userID)
}

// Clear empties the cart of any user. Callers must check privileges.
func (s *CartService) Clear(ctx context.Context, targetUserID uuid.UUID) (int64, error) {
	return s.repomanager.Cart(s.db).Clear(ctx, targetUserID)
}

// Remove deletes any line. Callers must check privileges.
func (s *CartService) Remove(ctx context.Context, lineID int64) error {
	return s.repomanager.Cart(s.db).Remove(ctx, lineID)
}

// Buy checks out the whole cart: every line is validated and priced, the
// total is debited once, each line gets its own audit entry and the cart is
// emptied. Any failure leaves balance, entitlements and cart untouched.
func (s *CartService) Buy(ctx context.Context, userID uuid.UUID, ip string) ([]*models.Entitlement, error) {
	started := s.now()

	var (
		result  []*models.Entitlement
		total   int64
		balance int64
	)

	err := s.atomically(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		now := s.now()
		ledger := s.repomanager.Users(tx)
		cartRepo := s.repomanager.Cart(tx)

		current, err := ledger.LockBalance(ctx, userID)
		if err != nil {
			return err
		}

		lines, err := cartRepo.ListForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return common.ErrorNotFound
		}

		catalogRepo := s.repomanager.Catalog(tx)
		quotes := make([]*quote, 0, len(lines))
		sum := int64(0)
		for _, line := range lines {
			serverID := int64(0)
			if line.ServerID != nil {
				serverID = *line.ServerID
			}

			q, err := resolveQuote(ctx, catalogRepo, line.ItemID, serverID, line.PeriodID, line.Quantity)
			if err != nil {
				return err
			}
			if sum, err = addPrice(sum, q.price); err != nil {
				return err
			}
			quotes = append(quotes, q)
		}

		if sum > current {
			return common.ErrInsufficientFunds
		}

		entRepo := s.repomanager.Entitlements(tx)
		granted := make([]*models.Entitlement, 0, len(quotes))
		for _, q := range quotes {
			ent, err := entitle(ctx, entRepo, userID, q, now)
			if err != nil {
				return err
			}
			granted = append(granted, ent)
		}

		if balance, err = ledger.Debit(ctx, userID, sum); err != nil {
			return err
		}

		historyRepo := s.repomanager.History(tx)
		for _, q := range quotes {
			if _, err := historyRepo.Record(ctx, &models.HistoryEntry{
				UserID:  userID,
				IP:      ip,
				Payload: models.PurchasePayload(q.item, q.serverID, q.period.ID, q.quantity),
			}); err != nil {
				return err
			}
		}

		ids := make([]int64, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ID)
		}
		if err := cartRepo.Delete(ctx, ids...); err != nil {
			return err
		}

		result, total = granted, sum
		return nil
	})

	s.observe(models.SourceCart, err, total, started)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "cart checked out", "user_id", userID, "lines", len(result), "total", total, "balance", balance)
	s.announce(ctx, models.PurchaseCompleted{
		UserID:       userID,
		IP:           ip,
		Source:       models.SourceCart,
		Total:        total,
		Balance:      balance,
		Entitlements: result,
		At:           s.now().UTC(),
	})

	return result, nil
}
