package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the context's logger, or the global one.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return L()
}

// WithViewer tags the context's logger with a viewer ID.
func WithViewer(ctx context.Context, viewerID string) context.Context {
	return WithLogger(ctx, Ctx(ctx).With().Str(FieldViewerID, viewerID).Logger())
}
