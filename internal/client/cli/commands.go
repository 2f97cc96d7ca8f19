package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	gs "github.com/dmitrijs2005/unicore/internal/server/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errNotLoggedIn = errors.New("not logged in, use 'login' first")

func usage(format string) error {
	return fmt.Errorf("usage: %s", format)
}

func parseInts(args []string, n int, format string) ([]int64, error) {
	if len(args) < n {
		return nil, usage(format)
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			return nil, usage(format)
		}
		out[i] = v
	}
	return out, nil
}

// describe turns a gRPC status into a message for the player.
func describe(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		return errors.New("not enough balance")
	case codes.AlreadyExists:
		return errors.New("already owned and still active")
	case codes.ResourceExhausted:
		return errors.New("too many purchases, try again later")
	case codes.Unauthenticated:
		return fmt.Errorf("authentication failed: %s", st.Message())
	default:
		return errors.New(st.Message())
	}
}

func (a *App) Login(ctx context.Context) error {
	token, err := GetSecret(a.out, "Access token")
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("empty token")
	}
	a.token = token
	printlnFn("Token stored for this session")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.token = ""
	printlnFn("Logged out")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.Ping(ctx)
	if err != nil {
		return describe(err)
	}
	printlnFn("Server:", resp.Status)
	return nil
}

func (a *App) Catalog(ctx context.Context, args []string) error {
	ids, err := parseInts(args, 1, "catalog <server>")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.CatalogByServer(ctx, &gs.CatalogByServerRequest{ServerID: ids[0]})
	if err != nil {
		return describe(err)
	}
	for _, item := range resp.Items {
		scope := "server"
		if item.AccountWide {
			scope = "account"
		}
		printlnFn(fmt.Sprintf("#%d %-10s %s (%s) price=%d discount=%d%%", item.ID, item.Kind, item.Name, scope, item.Price, item.Discount))
		for _, p := range item.Periods {
			duration := "forever"
			if p.ExpireSeconds != nil {
				duration = fmt.Sprintf("%ds", *p.ExpireSeconds)
			}
			printlnFn(fmt.Sprintf("    period #%d %s x%.2f %s", p.ID, p.Name, float64(p.Multiplier)/100, duration))
		}
	}
	return nil
}

func (a *App) Buy(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	ids, err := parseInts(args, 3, "buy <item> <server> <period>")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.BuyPermission(ctx, &gs.BuyPermissionRequest{ItemID: ids[0], ServerID: ids[1], PeriodID: ids[2]})
	if err != nil {
		return describe(err)
	}
	printEntitlement(resp.Entitlement)
	return nil
}

func (a *App) Entitlements(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.MyEntitlements(ctx)
	if err != nil {
		return describe(err)
	}
	if len(resp.Entitlements) == 0 {
		printlnFn("No entitlements")
	}
	for _, e := range resp.Entitlements {
		printEntitlement(e)
	}
	return nil
}

func printEntitlement(e *gs.Entitlement) {
	if e == nil {
		return
	}
	server := "all servers"
	if e.ServerID != nil {
		server = fmt.Sprintf("server %d", *e.ServerID)
	}
	expires := "never expires"
	if e.ExpiresAt != nil {
		expires = "expires " + e.ExpiresAt.Format("2006-01-02 15:04:05 MST")
	}
	printlnFn(fmt.Sprintf("#%d item %d on %s, qty %d, %s", e.ID, e.ItemID, server, e.Quantity, expires))
}

func (a *App) Cart(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	const format = "cart add <item> <server> <qty> [period] | list <server> | remove <line> | clear | buy"
	if len(args) == 0 {
		return usage(format)
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "add":
		ids, err := parseInts(rest, 3, format)
		if err != nil {
			return err
		}
		req := &gs.CartAddRequest{ItemID: ids[0], ServerID: ids[1], Quantity: ids[2]}
		if len(rest) > 3 {
			p, err := parseInts(rest[3:], 1, format)
			if err != nil {
				return err
			}
			req.PeriodID = &p[0]
		}
		resp, err := a.client.CartAdd(ctx, req)
		if err != nil {
			return describe(err)
		}
		printlnFn(fmt.Sprintf("Line #%d: item %d x%d", resp.Line.ID, resp.Line.ItemID, resp.Line.Quantity))

	case "list":
		ids, err := parseInts(rest, 1, format)
		if err != nil {
			return err
		}
		resp, err := a.client.CartFindByServer(ctx, &gs.CartFindByServerRequest{ServerID: ids[0]})
		if err != nil {
			return describe(err)
		}
		if len(resp.Lines) == 0 {
			printlnFn("Cart is empty")
		}
		for _, l := range resp.Lines {
			printlnFn(fmt.Sprintf("Line #%d: item %d x%d", l.ID, l.ItemID, l.Quantity))
		}

	case "remove":
		ids, err := parseInts(rest, 1, format)
		if err != nil {
			return err
		}
		if err := a.client.CartRemoveOwn(ctx, &gs.CartRemoveOwnRequest{LineID: ids[0]}); err != nil {
			return describe(err)
		}
		printlnFn("Removed")

	case "clear":
		resp, err := a.client.CartClearOwn(ctx)
		if err != nil {
			return describe(err)
		}
		printlnFn(fmt.Sprintf("Removed %d line(s)", resp.Removed))

	case "buy":
		resp, err := a.client.CartBuy(ctx)
		if err != nil {
			return describe(err)
		}
		for _, e := range resp.Entitlements {
			printEntitlement(e)
		}

	default:
		return usage(format)
	}
	return nil
}

func (a *App) History(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	req := &gs.HistoryRequest{}
	if len(args) > 0 {
		n, err := parseInts(args, min(len(args), 2), "history [limit] [offset]")
		if err != nil {
			return err
		}
		req.Limit = int(n[0])
		if len(n) > 1 {
			req.Offset = int(n[1])
		}
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.History(ctx, req)
	if err != nil {
		return describe(err)
	}
	for _, e := range resp.Entries {
		printlnFn(fmt.Sprintf("%s %-30s %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, string(e.Payload)))
	}
	return nil
}

func (a *App) Transfer(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	if len(args) < 2 {
		return usage("transfer <user-id> <amount>")
	}
	amount, err := parseInts(args[1:], 1, "transfer <user-id> <amount>")
	if err != nil {
		return err
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.Transfer(ctx, &gs.TransferRequest{ToUserID: args[0], Amount: amount[0]})
	if err != nil {
		return describe(err)
	}
	printlnFn(fmt.Sprintf("Sent %d, balance %d", amount[0], resp.Balance))
	return nil
}
