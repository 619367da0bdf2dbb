package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger = slog.Default()

// FromContext extracts the logger from context.
// Returns the default logger if no logger is found or ctx is nil.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, defaultLogger)
}

// FromContextOr extracts the logger from context, or returns fallback
// when the context carries none.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}

	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return fallback
}

// WithContext stores a logger in the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// with returns a context whose logger carries one extra string attribute.
func with(ctx context.Context, key, value string) context.Context {
	return WithContext(ctx, FromContext(ctx).With(slog.String(key, value)))
}

// WithRequestID adds a request ID to the logger in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, "request_id", requestID)
}

// WithTraceID adds a trace ID to the logger in context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, "trace_id", traceID)
}

// WithCorrelationID adds a correlation ID to the logger in context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return with(ctx, "correlation_id", correlationID)
}

// WithVisitorID adds the browser visitor ID to the logger in context.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return with(ctx, "visitor_id", visitorID)
}

// SetDefault sets the default logger used when no logger is in context.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
