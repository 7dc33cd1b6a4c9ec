package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// FromContext returns the logger stored by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithSubmission tags every later log line with the submission being judged.
func WithSubmission(ctx context.Context, submId string, user string, role string) context.Context {
	return with(ctx, "subm_id", submId, "user", user, "role", role)
}

// WithStage tags the logger with the pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return with(ctx, "stage", stage)
}

func with(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
