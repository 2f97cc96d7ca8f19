package grpc

import (
	"context"

	"github.com/dmitrijs2005/unicore/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client calls the store service over an established connection using the
// JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithAccessToken attaches the caller's access token to outgoing calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, "Ping", &PingRequest{})
}

func (c *Client) CatalogByServer(ctx context.Context, in *CatalogByServerRequest) (*CatalogResponse, error) {
	return invoke[CatalogResponse](ctx, c, "CatalogByServer", in)
}

func (c *Client) BuyPermission(ctx context.Context, in *BuyPermissionRequest) (*BuyPermissionResponse, error) {
	return invoke[BuyPermissionResponse](ctx, c, "BuyPermission", in)
}

func (c *Client) MyEntitlements(ctx context.Context) (*EntitlementsResponse, error) {
	return invoke[EntitlementsResponse](ctx, c, "MyEntitlements", &Empty{})
}

func (c *Client) CartAdd(ctx context.Context, in *CartAddRequest) (*CartAddResponse, error) {
	return invoke[CartAddResponse](ctx, c, "CartAdd", in)
}

func (c *Client) CartFindByServer(ctx context.Context, in *CartFindByServerRequest) (*CartLinesResponse, error) {
	return invoke[CartLinesResponse](ctx, c, "CartFindByServer", in)
}

func (c *Client) CartRemoveOwn(ctx context.Context, in *CartRemoveOwnRequest) error {
	_, err := invoke[Empty](ctx, c, "CartRemoveOwn", in)
	return err
}

func (c *Client) CartClearOwn(ctx context.Context) (*CartClearResponse, error) {
	return invoke[CartClearResponse](ctx, c, "CartClearOwn", &Empty{})
}

func (c *Client) CartBuy(ctx context.Context) (*EntitlementsResponse, error) {
	return invoke[EntitlementsResponse](ctx, c, "CartBuy", &Empty{})
}

func (c *Client) History(ctx context.Context, in *HistoryRequest) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c, "History", in)
}

func (c *Client) Transfer(ctx context.Context, in *TransferRequest) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c, "Transfer", in)
}

func (c *Client) AdminCartClear(ctx context.Context, in *AdminCartClearRequest) (*CartClearResponse, error) {
	return invoke[CartClearResponse](ctx, c, "AdminCartClear", in)
}

func (c *Client) AdminCartRemove(ctx context.Context, in *AdminCartRemoveRequest) error {
	_, err := invoke[Empty](ctx, c, "AdminCartRemove", in)
	return err
}

func (c *Client) AdminApplyPayment(ctx context.Context, in *AdminApplyPaymentRequest) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c, "AdminApplyPayment", in)
}

func (c *Client) AdminMarkDelivered(ctx context.Context, in *AdminMarkDeliveredRequest) error {
	_, err := invoke[Empty](ctx, c, "AdminMarkDelivered", in)
	return err
}
