package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/unicore/internal/client/config"
	gs "github.com/dmitrijs2005/unicore/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// storeClient is the part of the gRPC client the CLI uses.
type storeClient interface {
	Ping(ctx context.Context) (*gs.PingResponse, error)
	CatalogByServer(ctx context.Context, in *gs.CatalogByServerRequest) (*gs.CatalogResponse, error)
	BuyPermission(ctx context.Context, in *gs.BuyPermissionRequest) (*gs.BuyPermissionResponse, error)
	MyEntitlements(ctx context.Context) (*gs.EntitlementsResponse, error)
	CartAdd(ctx context.Context, in *gs.CartAddRequest) (*gs.CartAddResponse, error)
	CartFindByServer(ctx context.Context, in *gs.CartFindByServerRequest) (*gs.CartLinesResponse, error)
	CartRemoveOwn(ctx context.Context, in *gs.CartRemoveOwnRequest) error
	CartClearOwn(ctx context.Context) (*gs.CartClearResponse, error)
	CartBuy(ctx context.Context) (*gs.EntitlementsResponse, error)
	History(ctx context.Context, in *gs.HistoryRequest) (*gs.HistoryResponse, error)
	Transfer(ctx context.Context, in *gs.TransferRequest) (*gs.BalanceResponse, error)
}

type App struct {
	config *config.Config
	client storeClient
	conn   io.Closer
	token  string
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {

	conn, err := grpc.NewClient(c.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.ServerEndpointAddr, err)
	}

	return &App{
		config: c,
		client: gs.NewClient(conn),
		conn:   conn,
		token:  c.AccessToken,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.conn != nil {
			_ = a.conn.Close()
		}
	}()

	fmt.Fprintln(a.out, "Store CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(authenticated)"
	}
	return "(guest)"
}

// call bounds ctx by the request timeout and attaches the access token.
func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	if a.token != "" {
		ctx = gs.WithAccessToken(ctx, a.token)
	}
	return ctx, cancel
}
