package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/cart"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/history"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX, so a service can
// run several of them on one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Catalog(db dbx.DBTX) catalog.Repository
	Entitlements(db dbx.DBTX) entitlements.Repository
	Cart(db dbx.DBTX) cart.Repository
	History(db dbx.DBTX) history.Repository
}
