package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

const columns = `id, kind, user_id, ip, item_id, server_id, period_id, payment_id, target_user_id, amount, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// row is the flat column layout shared by every entry kind.
type row struct {
	itemID    *int64
	serverID  *int64
	periodID  *int64
	paymentID *string
	target    *uuid.UUID
	amount    *int64
}

func ref[T any](v T) *T { return &v }

func flatten(p models.HistoryPayload) (row, error) {
	switch v := p.(type) {
	case models.ProductPurchase:
		return row{itemID: ref(v.ProductID), serverID: v.ServerID, amount: ref(v.Amount)}, nil
	case models.KitPurchase:
		return row{itemID: ref(v.KitID), serverID: v.ServerID}, nil
	case models.PermissionPurchase:
		return row{itemID: ref(v.PermissionID), serverID: v.ServerID, periodID: ref(v.PeriodID)}, nil
	case models.Payment:
		return row{paymentID: ref(v.PaymentID), amount: ref(v.Amount)}, nil
	case models.TransferBetweenUsers:
		return row{target: ref(v.TargetID), amount: ref(v.Amount)}, nil
	case models.TransferAccountToServer:
		return row{serverID: ref(v.ServerID), amount: ref(v.Amount)}, nil
	case models.TransferUserToServerTarget:
		return row{serverID: ref(v.ServerID), target: ref(v.TargetID), amount: ref(v.Amount)}, nil
	}
	return row{}, fmt.Errorf("unknown history payload %T", p)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (r row) payload(kind models.HistoryKind) (models.HistoryPayload, error) {
	switch kind {
	case models.HistoryProductPurchase:
		return models.ProductPurchase{ProductID: deref(r.itemID), ServerID: r.serverID, Amount: deref(r.amount)}, nil
	case models.HistoryKitPurchase:
		return models.KitPurchase{KitID: deref(r.itemID), ServerID: r.serverID}, nil
	case models.HistoryPermissionPurchase:
		return models.PermissionPurchase{PermissionID: deref(r.itemID), ServerID: r.serverID, PeriodID: deref(r.periodID)}, nil
	case models.HistoryPayment:
		return models.Payment{PaymentID: deref(r.paymentID), Amount: deref(r.amount)}, nil
	case models.HistoryTransferBetweenUsers:
		return models.TransferBetweenUsers{TargetID: deref(r.target), Amount: deref(r.amount)}, nil
	case models.HistoryTransferAccountToServer:
		return models.TransferAccountToServer{ServerID: deref(r.serverID), Amount: deref(r.amount)}, nil
	case models.HistoryTransferUserToServerTarget:
		return models.TransferUserToServerTarget{ServerID: deref(r.serverID), TargetID: deref(r.target), Amount: deref(r.amount)}, nil
	}
	return nil, fmt.Errorf("unknown history kind %q", kind)
}

// Record appends entry. Errors are never translated to business errors; the
// caller aborts its transaction on any failure.
func (r *PostgresRepository) Record(ctx context.Context, entry *models.HistoryEntry) (*models.HistoryEntry, error) {
	flat, err := flatten(entry.Payload)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO history (kind, user_id, ip, item_id, server_id, period_id, payment_id, target_user_id, amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at
		 `

	saved := *entry
	err = r.db.QueryRowContext(ctx, query, string(entry.Payload.Kind()), entry.UserID, entry.IP,
		flat.itemID, flat.serverID, flat.periodID, flat.paymentID, flat.target, flat.amount).
		Scan(&saved.ID, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &saved, nil
}

// ListByUser returns the user's entries, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, error) {
	query := `SELECT ` + columns + `
		 FROM history
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3
		 `

	return r.list(ctx, query, userID, limit, offset)
}

// ListBetween returns entries created in [from, to), oldest first.
func (r *PostgresRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.HistoryEntry, error) {
	query := `SELECT ` + columns + `
		 FROM history
		 WHERE created_at >= $1 AND created_at < $2
		 ORDER BY created_at, id
		 `

	return r.list(ctx, query, from.UTC(), to.UTC())
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.HistoryEntry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func scan(rows *sql.Rows) (*models.HistoryEntry, error) {
	var (
		e    models.HistoryEntry
		kind string
		flat row
	)

	err := rows.Scan(&e.ID, &kind, &e.UserID, &e.IP, &flat.itemID, &flat.serverID, &flat.periodID,
		&flat.paymentID, &flat.target, &flat.amount, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if e.Payload, err = flat.payload(models.HistoryKind(kind)); err != nil {
		return nil, err
	}

	return &e, nil
}
