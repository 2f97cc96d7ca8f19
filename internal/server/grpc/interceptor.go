package grpc

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKey ctxKey = "identity"

// purchaseBucket is the rate-limit bucket shared by every balance-spending call.
const purchaseBucket = "purchase"

var publicMethods = map[string]bool{
	fullMethod("Ping"):            true,
	fullMethod("CatalogByServer"): true,
}

var adminMethods = map[string]bool{
	fullMethod("AdminCartClear"):     true,
	fullMethod("AdminCartRemove"):    true,
	fullMethod("AdminApplyPayment"):  true,
	fullMethod("AdminMarkDelivered"): true,
}

var limitedMethods = map[string]bool{
	fullMethod("BuyPermission"): true,
	fullMethod("CartBuy"):       true,
	fullMethod("Transfer"):      true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	identity, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	if adminMethods[info.FullMethod] && !identity.IsAdmin() {
		s.logger.Warn(ctx, "admin call denied", "method", info.FullMethod, "user_id", identity.UserID.String())
		return nil, status.Error(codes.PermissionDenied, "admin role required")
	}

	ctx = context.WithValue(ctx, identityKey, identity)

	return handler(ctx, req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if s.limiter == nil || !limitedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	key := s.clientIP(ctx)
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		key = id.UserID.String()
	}

	allowed, err := s.limiter.Allow(ctx, purchaseBucket, key)
	if err != nil {
		s.logger.Warn(ctx, "rate limiter unavailable", "error", err.Error())
		return handler(ctx, req)
	}
	if !allowed {
		return nil, status.Error(codes.ResourceExhausted, common.ErrRateLimited.Error())
	}

	return handler(ctx, req)
}

func identityFrom(ctx context.Context) (*auth.Identity, error) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	if !ok || id == nil {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return id, nil
}

func (s *GRPCServer) isTrusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the caller's address. x-forwarded-for is only read when
// the direct peer is a trusted proxy; its hops are walked from the right and
// the first one not belonging to a trusted proxy wins.
func (s *GRPCServer) clientIP(ctx context.Context) string {
	host := ""
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		host = p.Addr.String()
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	if !s.isTrusted(host) {
		return host
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return host
	}
	var hops []string
	for _, v := range md.Get(common.ForwardedForHeaderName) {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !s.isTrusted(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return host
}
