package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

const columns = `id, user_id, server_id, item_id, quantity, expires_at, delivered_at, revoked_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Entitlement, error) {
	e := &models.Entitlement{}
	err := row.Scan(&e.ID, &e.UserID, &e.ServerID, &e.ItemID, &e.Quantity,
		&e.ExpiresAt, &e.DeliveredAt, &e.RevokedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// FindCurrent returns the entitlement of the triple and locks it until the
// surrounding transaction ends. common.ErrorNotFound means the triple was
// never granted.
func (r *PostgresRepository) FindCurrent(ctx context.Context, userID uuid.UUID, serverID *int64, itemID int64) (*models.Entitlement, error) {
	query := `SELECT ` + columns + `
		 FROM entitlements
		 WHERE user_id = $1 AND COALESCE(server_id, 0) = COALESCE($2::bigint, 0) AND item_id = $3
		 FOR UPDATE
		 `

	e, err := scan(r.db.QueryRowContext(ctx, query, userID, serverID, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

// Grant inserts a new entitlement. If another transaction created the same
// triple first, it returns common.ErrConflict instead of a duplicate row.
func (r *PostgresRepository) Grant(ctx context.Context, e *models.Entitlement) (*models.Entitlement, error) {
	query := `INSERT INTO entitlements (user_id, server_id, item_id, quantity, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, (COALESCE(server_id, 0)), item_id) DO NOTHING
		 RETURNING ` + columns + `
		 `

	created, err := scan(r.db.QueryRowContext(ctx, query, e.UserID, e.ServerID, e.ItemID, e.Quantity, e.ExpiresAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

// Extend moves the deadline of e in place and clears the delivered and
// revoked markers. Only expired entitlements are extended, so quantity
// replaces the lapsed one rather than adding to it. The update only applies while the stored deadline still
// equals e.ExpiresAt; otherwise it returns common.ErrConflict.
func (r *PostgresRepository) Extend(ctx context.Context, e *models.Entitlement, expiresAt *time.Time, quantity int64) (*models.Entitlement, error) {
	query := `UPDATE entitlements
		 SET expires_at = $3, quantity = $4, delivered_at = NULL, revoked_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND expires_at IS NOT DISTINCT FROM $2::timestamptz
		 RETURNING ` + columns + `
		 `

	updated, err := scan(r.db.QueryRowContext(ctx, query, e.ID, e.ExpiresAt, expiresAt, quantity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return updated, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error) {
	query := `SELECT ` + columns + `
		 FROM entitlements
		 WHERE user_id = $1
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Entitlement
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE entitlements SET delivered_at = $2, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
