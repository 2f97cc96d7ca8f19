// Package services contains the store's business logic: the purchase engine
// for single items and carts, balance operations and history listing.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/repomanager"
)

// EventPublisher receives purchase events after commit.
type EventPublisher interface {
	PublishPurchase(ctx context.Context, ev models.PurchaseCompleted) error
}

// PurchaseObserver records the outcome of every purchase attempt.
type PurchaseObserver interface {
	ObservePurchase(source string, err error, total int64, elapsed time.Duration)
}

// Option customises a service.
type Option func(*core)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(c *core) { c.log = l }
}

func WithPublisher(p EventPublisher) Option {
	return func(c *core) { c.publisher = p }
}

func WithObserver(o PurchaseObserver) Option {
	return func(c *core) { c.observer = o }
}

// core is the state shared by all services.
type core struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	attempts    int
	now         func() time.Time
	log         logging.Logger
	publisher   EventPublisher
	observer    PurchaseObserver
}

func newCore(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts []Option) core {
	c := core{
		db:          db,
		repomanager: m,
		attempts:    cfg.PurchaseRetryAttempts,
		now:         time.Now,
		log:         logging.NewLogrusLogger(nil),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// atomically runs fn as one transaction, replaying it on lock contention.
// Business errors come back unchanged; anything else is reported as
// common.ErrPersistence.
func (c *core) atomically(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	err := dbx.WithTxRetry(ctx, c.db, txOptions, c.attempts, fn)
	if err == nil || common.IsBusiness(err) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrPersistence, err)
}

func (c *core) observe(source string, err error, total int64, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObservePurchase(source, err, total, c.now().Sub(started))
}

// announce publishes ev. The purchase is already committed, so failures are
// only logged.
func (c *core) announce(ctx context.Context, ev models.PurchaseCompleted) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishPurchase(ctx, ev); err != nil {
		c.log.Warn(ctx, "purchase event not published", "user_id", ev.UserID, "source", ev.Source, "error", err)
	}
}
