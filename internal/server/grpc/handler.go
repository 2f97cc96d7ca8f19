package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {

	return &PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) CatalogByServer(ctx context.Context, req *CatalogByServerRequest) (*CatalogResponse, error) {

	items, err := s.purchases.CatalogByServer(ctx, req.ServerID)
	if err != nil {
		return nil, s.fail(ctx, "catalog", err)
	}

	return &CatalogResponse{Items: toCatalogItems(items)}, nil

}

func (s *GRPCServer) BuyPermission(ctx context.Context, req *BuyPermissionRequest) (*BuyPermissionResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	ent, err := s.purchases.BuyPermission(ctx, id.UserID, s.clientIP(ctx), req.ItemID, req.ServerID, req.PeriodID)
	if err != nil {
		return nil, s.fail(ctx, "buy permission", err)
	}

	s.logger.Info(ctx, "Permission bought", "user_id", id.UserID.String(), "item_id", req.ItemID)
	return &BuyPermissionResponse{Entitlement: toEntitlement(ent)}, nil

}

func (s *GRPCServer) MyEntitlements(ctx context.Context, req *Empty) (*EntitlementsResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.purchases.Entitlements(ctx, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "entitlements", err)
	}

	return &EntitlementsResponse{Entitlements: toEntitlements(list)}, nil

}

func (s *GRPCServer) CartAdd(ctx context.Context, req *CartAddRequest) (*CartAddResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	line, err := s.carts.Add(ctx, id.UserID, req.ItemID, req.ServerID, req.PeriodID, req.Quantity)
	if err != nil {
		return nil, s.fail(ctx, "cart add", err)
	}

	return &CartAddResponse{Line: toCartLine(line)}, nil

}

func (s *GRPCServer) CartFindByServer(ctx context.Context, req *CartFindByServerRequest) (*CartLinesResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.FindByServer(ctx, id.UserID, req.ServerID)
	if err != nil {
		return nil, s.fail(ctx, "cart find", err)
	}

	return &CartLinesResponse{Lines: toCartLines(lines)}, nil

}

func (s *GRPCServer) CartRemoveOwn(ctx context.Context, req *CartRemoveOwnRequest) (*Empty, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.carts.RemoveOwn(ctx, id.UserID, req.LineID); err != nil {
		return nil, s.fail(ctx, "cart remove", err)
	}

	return &Empty{}, nil

}

func (s *GRPCServer) CartClearOwn(ctx context.Context, req *Empty) (*CartClearResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.carts.ClearOwn(ctx, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "cart clear", err)
	}

	return &CartClearResponse{Removed: n}, nil

}

func (s *GRPCServer) CartBuy(ctx context.Context, req *Empty) (*EntitlementsResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.carts.Buy(ctx, id.UserID, s.clientIP(ctx))
	if err != nil {
		return nil, s.fail(ctx, "cart buy", err)
	}

	s.logger.Info(ctx, "Cart bought", "user_id", id.UserID.String(), "lines", len(list))
	return &EntitlementsResponse{Entitlements: toEntitlements(list)}, nil

}

func (s *GRPCServer) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.history.List(ctx, id.UserID, req.Limit, req.Offset)
	if err != nil {
		return nil, s.fail(ctx, "history", err)
	}

	entries, err := toHistoryEntries(list)
	if err != nil {
		return nil, s.fail(ctx, "history", err)
	}

	return &HistoryResponse{Entries: entries}, nil

}

func (s *GRPCServer) Transfer(ctx context.Context, req *TransferRequest) (*BalanceResponse, error) {

	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	to, err := parseUserID(req.ToUserID)
	if err != nil {
		return nil, err
	}

	balance, err := s.balances.Transfer(ctx, id.UserID, to, s.clientIP(ctx), req.Amount)
	if err != nil {
		return nil, s.fail(ctx, "transfer", err)
	}

	return &BalanceResponse{Balance: balance}, nil

}

func (s *GRPCServer) AdminCartClear(ctx context.Context, req *AdminCartClearRequest) (*CartClearResponse, error) {

	target, err := parseUserID(req.UserID)
	if err != nil {
		return nil, err
	}

	n, err := s.carts.Clear(ctx, target)
	if err != nil {
		return nil, s.fail(ctx, "admin cart clear", err)
	}

	s.logger.Info(ctx, "Cart cleared by admin", "target_user_id", target.String(), "removed", n)
	return &CartClearResponse{Removed: n}, nil

}

func (s *GRPCServer) AdminCartRemove(ctx context.Context, req *AdminCartRemoveRequest) (*Empty, error) {

	if err := s.carts.Remove(ctx, req.LineID); err != nil {
		return nil, s.fail(ctx, "admin cart remove", err)
	}

	return &Empty{}, nil

}

func (s *GRPCServer) AdminApplyPayment(ctx context.Context, req *AdminApplyPaymentRequest) (*BalanceResponse, error) {

	target, err := parseUserID(req.UserID)
	if err != nil {
		return nil, err
	}

	balance, err := s.balances.ApplyPayment(ctx, target, s.clientIP(ctx), req.PaymentID, req.Amount)
	if err != nil {
		return nil, s.fail(ctx, "apply payment", err)
	}

	s.logger.Info(ctx, "Payment applied", "user_id", target.String(), "payment_id", req.PaymentID)
	return &BalanceResponse{Balance: balance}, nil

}

func (s *GRPCServer) AdminMarkDelivered(ctx context.Context, req *AdminMarkDeliveredRequest) (*Empty, error) {

	if err := s.purchases.MarkDelivered(ctx, req.EntitlementID); err != nil {
		return nil, s.fail(ctx, "mark delivered", err)
	}

	return &Empty{}, nil

}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "invalid user id")
	}
	return id, nil
}
