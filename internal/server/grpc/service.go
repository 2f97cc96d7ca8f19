package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "unicore.store.StoreService"

// StoreServer is the server API of the store service.
type StoreServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	CatalogByServer(context.Context, *CatalogByServerRequest) (*CatalogResponse, error)
	BuyPermission(context.Context, *BuyPermissionRequest) (*BuyPermissionResponse, error)
	MyEntitlements(context.Context, *Empty) (*EntitlementsResponse, error)
	CartAdd(context.Context, *CartAddRequest) (*CartAddResponse, error)
	CartFindByServer(context.Context, *CartFindByServerRequest) (*CartLinesResponse, error)
	CartRemoveOwn(context.Context, *CartRemoveOwnRequest) (*Empty, error)
	CartClearOwn(context.Context, *Empty) (*CartClearResponse, error)
	CartBuy(context.Context, *Empty) (*EntitlementsResponse, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Transfer(context.Context, *TransferRequest) (*BalanceResponse, error)
	AdminCartClear(context.Context, *AdminCartClearRequest) (*CartClearResponse, error)
	AdminCartRemove(context.Context, *AdminCartRemoveRequest) (*Empty, error)
	AdminApplyPayment(context.Context, *AdminApplyPaymentRequest) (*BalanceResponse, error)
	AdminMarkDelivered(context.Context, *AdminMarkDeliveredRequest) (*Empty, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(StoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(StoreServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var storeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", StoreServer.Ping),
		unary("CatalogByServer", StoreServer.CatalogByServer),
		unary("BuyPermission", StoreServer.BuyPermission),
		unary("MyEntitlements", StoreServer.MyEntitlements),
		unary("CartAdd", StoreServer.CartAdd),
		unary("CartFindByServer", StoreServer.CartFindByServer),
		unary("CartRemoveOwn", StoreServer.CartRemoveOwn),
		unary("CartClearOwn", StoreServer.CartClearOwn),
		unary("CartBuy", StoreServer.CartBuy),
		unary("History", StoreServer.History),
		unary("Transfer", StoreServer.Transfer),
		unary("AdminCartClear", StoreServer.AdminCartClear),
		unary("AdminCartRemove", StoreServer.AdminCartRemove),
		unary("AdminApplyPayment", StoreServer.AdminApplyPayment),
		unary("AdminMarkDelivered", StoreServer.AdminMarkDelivered),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "unicore/store",
}

// RegisterStoreServer registers srv on s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&storeServiceDesc, srv)
}
