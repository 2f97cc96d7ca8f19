// Package server wires the store together: storage, services, the gRPC
// endpoint, the metrics endpoint and the history archive, and runs them until
// a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/dmitrijs2005/unicore/internal/server/archive"
	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/events"
	"github.com/dmitrijs2005/unicore/internal/server/metrics"
	"github.com/dmitrijs2005/unicore/internal/server/ratelimit"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/unicore/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/unicore/internal/server/grpc"
)

type publisher interface {
	services.EventPublisher
	Close()
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	services  gs.Services
	limiter   ratelimit.Limiter
	redis     *redis.Client
	publisher publisher
	registry  *prometheus.Registry
	archiver  *archive.Archiver
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel)
	ctx := context.Background()

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := rm.RunMigrations(migrateCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := metrics.NewPurchaseObserver("unicore", registry)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db, registry: registry}
	app.publisher = app.newPublisher(ctx)
	app.limiter = app.newLimiter(ctx)

	opts := []services.Option{
		services.WithLogger(logger.With("module", "services")),
		services.WithPublisher(app.publisher),
		services.WithObserver(observer),
	}
	app.services = gs.Services{
		Purchases: services.NewPurchaseService(db, rm, c, opts...),
		Carts:     services.NewCartService(db, rm, c, opts...),
		Balances:  services.NewBalanceService(db, rm, c, opts...),
		History:   services.NewHistoryService(db, rm, c, opts...),
	}

	if c.ArchiveSchedule != "" {
		s3c, err := archive.NewS3Client(ctx, c)
		if err != nil {
			logger.Warn(ctx, "history archive disabled", "error", err.Error())
		} else {
			app.archiver = archive.NewArchiver(rm.History(db), s3c, c.S3Bucket, logger)
		}
	}

	return app, nil
}

// newPublisher connects to RabbitMQ, falling back to a logging no-op when no
// broker is configured or reachable.
func (app *App) newPublisher(ctx context.Context) publisher {
	if app.config.RabbitMQURL == "" {
		return events.Fallback{Logger: app.logger}
	}
	p, err := events.NewProducer(app.config.RabbitMQURL, app.config.RabbitMQExchange, app.logger)
	if err != nil {
		app.logger.Warn(ctx, "rabbitmq unavailable, purchase events disabled", "error", err.Error())
		return events.Fallback{Logger: app.logger}
	}
	return p
}

// newLimiter prefers the shared Redis limiter and falls back to the
// in-process one.
func (app *App) newLimiter(ctx context.Context) ratelimit.Limiter {
	if app.config.PurchaseRateLimit <= 0 {
		return nil
	}
	limits := map[string]ratelimit.Limit{
		"purchase": {Limit: app.config.PurchaseRateLimit, Window: time.Minute},
	}

	if app.config.RedisURL != "" {
		opts, err := redis.ParseURL(app.config.RedisURL)
		if err == nil {
			client := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = client.Ping(pingCtx).Err()
			cancel()
			if err == nil {
				app.redis = client
				return ratelimit.NewRedisLimiter(client, app.config.RedisPrefix, limits)
			}
			_ = client.Close()
		}
		app.logger.Warn(ctx, "redis unavailable, using in-memory rate limiter", "error", err.Error())
	}

	return ratelimit.NewMemoryLimiter(limits)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services, app.limiter, app.config.SecretKey, app.config.TrustedProxyList())

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.EndpointAddrMetrics == "" {
		return
	}
	s := metrics.NewServer(app.config.EndpointAddrMetrics, app.registry, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startArchive(ctx context.Context) {
	if app.archiver == nil {
		return
	}
	s := archive.NewScheduler(app.config.ArchiveSchedule, app.archiver, app.logger)
	if err := s.Start(); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}
	<-ctx.Done()
	<-s.Stop().Done()
}

func (app *App) close(ctx context.Context) {
	app.publisher.Close()
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, run := range []func(){
		func() { app.startGRPCServer(ctx, cancelFunc) },
		func() { app.startMetricsServer(ctx, cancelFunc) },
		func() { app.startArchive(ctx) },
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run()
		}()
	}

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(context.Background(), "App stopped")

}
