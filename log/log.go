// Package log carries a slog.Logger through request contexts so every
// layer logs with the same attributes (userId, chatId, ...).
package log

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey struct{}

// New returns the process-wide JSON logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return New()
}
