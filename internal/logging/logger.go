// Package logging is the structured logger shared by the store server and
// its background workers.
package logging

import "context"

// Logger takes alternating key/value args after the message:
//
//	log.Info(ctx, "cart bought", "user_id", id, "lines", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds args to every record of the returned logger.
	With(args ...any) Logger
}
