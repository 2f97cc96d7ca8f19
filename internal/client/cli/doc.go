// Package cli implements the interactive store client: a small REPL that
// talks to the store server over gRPC with the caller's access token.
package cli
