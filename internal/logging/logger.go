// Package logging is the structured logger both binaries log through.
// SlogLogger is the only implementation; tests use Nop.
package logging

import "context"

// Logger takes key/value pairs after the message:
//
//	log.Info(ctx, "Starting HTTP server", "address", addr, "prefix", prefix)
//
// The context carries the request id, see WithRequestID.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}
