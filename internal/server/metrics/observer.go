// Package metrics exports purchase outcomes to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PurchaseObserver counts purchases by source and outcome and tracks their
// latency and spend.
type PurchaseObserver struct {
	purchases *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	spent     *prometheus.CounterVec
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPurchaseObserver registers the store metrics on reg, reusing collectors
// that are already registered.
func NewPurchaseObserver(namespace string, reg prometheus.Registerer) (*PurchaseObserver, error) {
	if namespace == "" {
		namespace = "unicore"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PurchaseObserver{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "purchases_total",
			Help:      "Purchase attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "purchase_duration_seconds",
			Help:      "Latency of purchase transactions including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		spent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "spent_total",
			Help:      "Balance debited by committed purchases, in minor units.",
		}, []string{"source"}),
	}

	var err error
	if o.purchases, err = register(reg, o.purchases); err != nil {
		return nil, fmt.Errorf("register purchases counter: %w", err)
	}
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, fmt.Errorf("register purchase histogram: %w", err)
	}
	if o.spent, err = register(reg, o.spent); err != nil {
		return nil, fmt.Errorf("register spent counter: %w", err)
	}
	return o, nil
}

// Outcome names the result of a purchase for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, common.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, common.ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}

func (o *PurchaseObserver) ObservePurchase(source string, err error, total int64, elapsed time.Duration) {
	if o == nil {
		return
	}
	o.purchases.WithLabelValues(source, Outcome(err)).Inc()
	o.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err == nil && total > 0 {
		o.spent.WithLabelValues(source).Add(float64(total))
	}
}

// Server exposes /metrics for the given gatherer.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(addr string, g prometheus.Gatherer, l logging.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: l.With("module", "metrics_server"),
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting metrics server", "address", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
