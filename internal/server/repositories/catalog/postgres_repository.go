package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*models.CatalogItem, error) {
	item := &models.CatalogItem{}
	var kind string
	var grants []byte

	err := row.Scan(&item.ID, &kind, &item.Name, &item.Description,
		&item.Price, &item.Discount, &grants, &item.AccountWide)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	item.Kind = models.ItemKind(kind)
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &item.Grants); err != nil {
			return nil, fmt.Errorf("item %d grants: %w", item.ID, err)
		}
	}
	return item, nil
}

// Resolve loads the item together with its eligible servers and periods.
func (r *PostgresRepository) Resolve(ctx context.Context, itemID int64) (*models.CatalogItem, error) {
	query :=
		`SELECT id, kind, name, description, price, discount, grants, account_wide
		 FROM catalog_items
		 WHERE id = $1
		 `

	item, err := scanItem(r.db.QueryRowContext(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}

	if item.Servers, err = r.serversFor(ctx, itemID); err != nil {
		return nil, err
	}

	if item.Periods, err = r.PeriodsFor(ctx, itemID); err != nil {
		return nil, err
	}

	return item, nil
}

func (r *PostgresRepository) serversFor(ctx context.Context, itemID int64) ([]models.Server, error) {
	query :=
		`SELECT s.id, s.name
		 FROM servers s
		 JOIN catalog_item_servers cs ON cs.server_id = s.id
		 WHERE cs.item_id = $1
		 ORDER BY s.id
		 `

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		servers = append(servers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return servers, nil
}

func (r *PostgresRepository) PeriodsFor(ctx context.Context, itemID int64) ([]models.Period, error) {
	query :=
		`SELECT p.id, p.name, p.multiplier, p.expire_seconds
		 FROM periods p
		 JOIN catalog_item_periods cp ON cp.period_id = p.id
		 WHERE cp.item_id = $1
		 ORDER BY p.id
		 `

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var periods []models.Period
	for rows.Next() {
		var p models.Period
		var multiplier int64
		if err := rows.Scan(&p.ID, &p.Name, &multiplier, &p.ExpireSeconds); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Multiplier = models.Multiplier(multiplier)
		periods = append(periods, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return periods, nil
}

// listedOn selects the ids of the items offered on server $1 that have at
// least one period.
const listedOn = `
	SELECT ci.id
	FROM catalog_items ci
	WHERE (ci.account_wide OR EXISTS (
	        SELECT 1 FROM catalog_item_servers cs
	        WHERE cs.item_id = ci.id AND cs.server_id = $1))
	  AND EXISTS (SELECT 1 FROM catalog_item_periods cp WHERE cp.item_id = ci.id)`

// ListByServer returns the items purchasable on serverID that have at least
// one period. Account-wide items come last. The page is read with three
// queries however many items it holds.
func (r *PostgresRepository) ListByServer(ctx context.Context, serverID int64) ([]*models.CatalogItem, error) {
	query :=
		`SELECT id, kind, name, description, price, discount, grants, account_wide
		 FROM catalog_items
		 WHERE id IN (` + listedOn + `)
		 ORDER BY account_wide, id
		 `

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var items []*models.CatalogItem
	byID := make(map[int64]*models.CatalogItem)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, item)
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	if len(items) == 0 {
		return []*models.CatalogItem{}, nil
	}

	if err := r.attachServers(ctx, serverID, byID); err != nil {
		return nil, err
	}
	if err := r.attachPeriods(ctx, serverID, byID); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *PostgresRepository) attachServers(ctx context.Context, serverID int64, byID map[int64]*models.CatalogItem) error {
	query :=
		`SELECT cs.item_id, s.id, s.name
		 FROM catalog_item_servers cs
		 JOIN servers s ON s.id = cs.server_id
		 WHERE cs.item_id IN (` + listedOn + `)
		 ORDER BY cs.item_id, s.id
		 `

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var s models.Server
		if err := rows.Scan(&itemID, &s.ID, &s.Name); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if item, ok := byID[itemID]; ok {
			item.Servers = append(item.Servers, s)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) attachPeriods(ctx context.Context, serverID int64, byID map[int64]*models.CatalogItem) error {
	query :=
		`SELECT cp.item_id, p.id, p.name, p.multiplier, p.expire_seconds
		 FROM catalog_item_periods cp
		 JOIN periods p ON p.id = cp.period_id
		 WHERE cp.item_id IN (` + listedOn + `)
		 ORDER BY cp.item_id, p.id
		 `

	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, multiplier int64
		var p models.Period
		if err := rows.Scan(&itemID, &p.ID, &p.Name, &multiplier, &p.ExpireSeconds); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		p.Multiplier = models.Multiplier(multiplier)
		if item, ok := byID[itemID]; ok {
			item.Periods = append(item.Periods, p)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
