package grpc

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/ratelimit"
	"github.com/google/uuid"
	"google.golang.org/grpc"
)

type purchaseSvc interface {
	BuyPermission(ctx context.Context, userID uuid.UUID, ip string, itemID, serverID, periodID int64) (*models.Entitlement, error)
	Entitlements(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error)
	MarkDelivered(ctx context.Context, entitlementID int64) error
	CatalogByServer(ctx context.Context, serverID int64) ([]*models.CatalogItem, error)
}

type cartSvc interface {
	Add(ctx context.Context, userID uuid.UUID, itemID, serverID int64, periodID *int64, quantity int64) (*models.CartLine, error)
	FindByServer(ctx context.Context, userID uuid.UUID, serverID int64) ([]*models.CartLine, error)
	RemoveOwn(ctx context.Context, userID uuid.UUID, lineID int64) error
	ClearOwn(ctx context.Context, userID uuid.UUID) (int64, error)
	Clear(ctx context.Context, targetUserID uuid.UUID) (int64, error)
	Remove(ctx context.Context, lineID int64) error
	Buy(ctx context.Context, userID uuid.UUID, ip string) ([]*models.Entitlement, error)
}

type balanceSvc interface {
	Transfer(ctx context.Context, fromID, toID uuid.UUID, ip string, amount int64) (int64, error)
	ApplyPayment(ctx context.Context, userID uuid.UUID, ip, paymentID string, amount int64) (int64, error)
}

type historySvc interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, error)
}

// Services groups the application services exposed over gRPC.
type Services struct {
	Purchases purchaseSvc
	Carts     cartSvc
	Balances  balanceSvc
	History   historySvc
}

type GRPCServer struct {
	address   string
	purchases purchaseSvc
	carts     cartSvc
	balances  balanceSvc
	history   historySvc
	limiter   ratelimit.Limiter
	logger    logging.Logger
	jwtSecret []byte
	// trusted may set x-forwarded-for; see clientIP.
	trusted []netip.Prefix
}

// NewGRPCServer builds the store server. trustedProxies lists the CIDRs or
// addresses of reverse proxies whose x-forwarded-for header is believed.
func NewGRPCServer(a string, l logging.Logger, svc Services, limiter ratelimit.Limiter, secretKey string, trustedProxies []string) (*GRPCServer, error) {
	trusted, err := parseProxies(trustedProxies)
	if err != nil {
		return nil, err
	}
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		purchases: svc.Purchases,
		carts:     svc.Carts,
		balances:  svc.Balances,
		history:   svc.History,
		limiter:   limiter,
		jwtSecret: []byte(secretKey),
		trusted:   trusted,
	}, nil
}

func parseProxies(list []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor, s.rateLimitInterceptor))

	// registers service
	RegisterStoreServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
