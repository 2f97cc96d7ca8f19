package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Catalog(ctx context.Context, args []string) error
	Buy(ctx context.Context, args []string) error
	Entitlements(ctx context.Context) error
	Cart(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Transfer(ctx context.Context, args []string) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF or
// "exit". Command errors are printed and the loop continues.
//
//	Always:
//	  - help                               show available commands
//	  - ping                               check the server
//	  - catalog <server>                   items buyable on a server
//	  - login | logout                     enter or forget the access token
//	  - exit | quit                        leave the program
//
//	Logged in:
//	  - buy <item> <server> <period>       buy a permission
//	  - me                                 list own entitlements
//	  - cart add|list|remove|clear|buy     manage the cart
//	  - history [limit] [offset]           own audit log
//	  - transfer <user-id> <amount>        send balance to another player
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("store %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: ping, catalog, buy, me, cart, history, transfer, logout, exit")
			} else {
				printlnFn("Available commands: ping, catalog, login, exit")
			}

		case "ping":
			err = a.Ping(ctx)

		case "catalog":
			err = a.Catalog(ctx, args)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "buy":
			err = a.Buy(ctx, args)

		case "me":
			err = a.Entitlements(ctx)

		case "cart":
			err = a.Cart(ctx, args)

		case "history":
			err = a.History(ctx, args)

		case "transfer":
			err = a.Transfer(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
