package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

const columns = `id, user_id, item_id, server_id, period_id, quantity, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.CartLine, error) {
	l := &models.CartLine{}
	err := row.Scan(&l.ID, &l.UserID, &l.ItemID, &l.ServerID, &l.PeriodID, &l.Quantity, &l.CreatedAt)
	return l, err
}

// Upsert adds line to the cart. An existing line for the same (user, item,
// server) only absorbs line when stackable is set and both name the same
// period; otherwise common.ErrConflict is returned and the cart is unchanged.
func (r *PostgresRepository) Upsert(ctx context.Context, line *models.CartLine, stackable bool) (*models.CartLine, error) {
	query := `INSERT INTO cart_lines (user_id, item_id, server_id, period_id, quantity)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, item_id, (COALESCE(server_id, 0)))
		 DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		 WHERE $6::boolean AND cart_lines.period_id IS NOT DISTINCT FROM EXCLUDED.period_id
		 RETURNING ` + columns + `
		 `

	saved, err := scan(r.db.QueryRowContext(ctx, query, line.UserID, line.ItemID, line.ServerID, line.PeriodID, line.Quantity, stackable))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

// FindByServer lists the lines of a server together with account-wide lines.
func (r *PostgresRepository) FindByServer(ctx context.Context, userID uuid.UUID, serverID int64) ([]*models.CartLine, error) {
	query := `SELECT ` + columns + `
		 FROM cart_lines
		 WHERE user_id = $1 AND (server_id = $2 OR server_id IS NULL)
		 ORDER BY id
		 `

	return r.list(ctx, query, userID, serverID)
}

// ListForUpdate returns every line of the user and locks them until the
// surrounding transaction ends.
func (r *PostgresRepository) ListForUpdate(ctx context.Context, userID uuid.UUID) ([]*models.CartLine, error) {
	query := `SELECT ` + columns + `
		 FROM cart_lines
		 WHERE user_id = $1
		 ORDER BY id
		 FOR UPDATE
		 `

	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.CartLine
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) RemoveOwn(ctx context.Context, userID uuid.UUID, lineID int64) error {
	query := `DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, lineID, userID)
	return expectOne(res, err)
}

func (r *PostgresRepository) Remove(ctx context.Context, lineID int64) error {
	query := `DELETE FROM cart_lines WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, lineID)
	return expectOne(res, err)
}

// Clear removes every line of the user and reports how many were removed.
func (r *PostgresRepository) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `DELETE FROM cart_lines WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

// Delete removes the given lines; lines that are already gone are ignored.
func (r *PostgresRepository) Delete(ctx context.Context, lineIDs ...int64) error {
	query := `DELETE FROM cart_lines WHERE id = $1`

	for _, id := range lineIDs {
		if _, err := r.db.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}

func expectOne(res sql.Result, err error) error {
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
