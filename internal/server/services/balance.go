package services

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// BalanceService moves money between users and books external payments.
type BalanceService struct {
	core
}

func NewBalanceService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *BalanceService {
	return &BalanceService{core: newCore(db, m, cfg, opts)}
}

// Transfer moves amount from one user to another and returns the sender's
// new balance.
func (s *BalanceService) Transfer(ctx context.Context, fromID, toID uuid.UUID, ip string, amount int64) (int64, error) {
	if amount <= 0 || fromID == toID {
		return 0, common.ErrInvalidArgument
	}

	var balance int64
	err := s.atomically(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		ledger := s.repomanager.Users(tx)

		// Lock both rows in a fixed order so opposite transfers cannot deadlock.
		first, second := fromID, toID
		if bytes.Compare(first[:], second[:]) > 0 {
			first, second = second, first
		}
		var fromBalance int64
		for _, id := range []uuid.UUID{first, second} {
			b, err := ledger.LockBalance(ctx, id)
			if err != nil {
				return err
			}
			if id == fromID {
				fromBalance = b
			}
		}

		if amount > fromBalance {
			return common.ErrInsufficientFunds
		}

		var err error
		if balance, err = ledger.Debit(ctx, fromID, amount); err != nil {
			return err
		}
		if _, err := ledger.Credit(ctx, toID, amount); err != nil {
			return err
		}

		_, err = s.repomanager.History(tx).Record(ctx, &models.HistoryEntry{
			UserID:  fromID,
			IP:      ip,
			Payload: models.TransferBetweenUsers{TargetID: toID, Amount: amount},
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info(ctx, "balance transferred", "from", fromID, "to", toID, "amount", amount)
	return balance, nil
}

// ApplyPayment credits a payment confirmed by the payment provider. A
// payment id can only be applied once; a repeat yields common.ErrConflict.
func (s *BalanceService) ApplyPayment(ctx context.Context, userID uuid.UUID, ip, paymentID string, amount int64) (int64, error) {
	if amount <= 0 || paymentID == "" {
		return 0, common.ErrInvalidArgument
	}

	var balance int64
	err := s.atomically(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if balance, err = s.repomanager.Users(tx).Credit(ctx, userID, amount); err != nil {
			return err
		}

		_, err = s.repomanager.History(tx).Record(ctx, &models.HistoryEntry{
			UserID:  userID,
			IP:      ip,
			Payload: models.Payment{PaymentID: paymentID, Amount: amount},
		})
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info(ctx, "payment applied", "user_id", userID, "payment_id", paymentID, "amount", amount)
	return balance, nil
}
