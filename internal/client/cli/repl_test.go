package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
	err   error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) Ping(ctx context.Context) error { return f.record("ping", nil) }
func (f *fakeExec) Catalog(ctx context.Context, args []string) error {
	return f.record("catalog", args)
}
func (f *fakeExec) Buy(ctx context.Context, args []string) error { return f.record("buy", args) }
func (f *fakeExec) Entitlements(ctx context.Context) error       { return f.record("me", nil) }
func (f *fakeExec) Cart(ctx context.Context, args []string) error {
	return f.record("cart", args)
}
func (f *fakeExec) History(ctx context.Context, args []string) error {
	return f.record("history", args)
}
func (f *fakeExec) Transfer(ctx context.Context, args []string) error {
	return f.record("transfer", args)
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	old := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = old })
	return &lines
}

func run(f *fakeExec, input string) {
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewScanner(strings.NewReader(input)))
}

func TestREPL_Dispatch(t *testing.T) {
	captureOutput(t)
	f := &fakeExec{}

	run(f, "ping\ncatalog 1\nlogin\nbuy 3 1 2\nme\ncart add 1 2 3\nhistory 5\ntransfer u 10\nlogout\nexit\nping\n")

	want := []string{"ping", "catalog", "login", "buy", "me", "cart", "history", "transfer", "logout"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if strings.Join(f.args[5], " ") != "add 1 2 3" {
		t.Fatalf("cart args = %v", f.args[5])
	}
}

func TestREPL_HelpDependsOnLogin(t *testing.T) {
	out := captureOutput(t)

	run(&fakeExec{}, "help\n")
	run(&fakeExec{loggedIn: true}, "help\n")

	joined := strings.Join(*out, "\n")
	if !strings.Contains(joined, "ping, catalog, login, exit") {
		t.Fatalf("guest help missing: %q", joined)
	}
	if !strings.Contains(joined, "cart, history, transfer, logout") {
		t.Fatalf("player help missing: %q", joined)
	}
}

func TestREPL_UnknownAndErrors(t *testing.T) {
	out := captureOutput(t)
	f := &fakeExec{err: errors.New("boom")}

	run(f, "\n   \nfrobnicate\nping\n")

	joined := strings.Join(*out, "\n")
	if !strings.Contains(joined, "Unknown command: frobnicate") {
		t.Fatalf("unknown command not reported: %q", joined)
	}
	if !strings.Contains(joined, "Error: boom") {
		t.Fatalf("error not reported: %q", joined)
	}
	if len(f.calls) != 1 {
		t.Fatalf("calls = %v", f.calls)
	}
}
