package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	traceIDKey
	spanIDKey
)

// New builds the process logger. format is "json" or "text".
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithLogger attaches logger to ctx. A nil logger leaves ctx untouched.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, _ := ctx.Value(loggerKey).(*slog.Logger); logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// WithRequestID tags ctx with the X-Request-ID of the API call in flight.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestIDKey) }

func WithTraceID(ctx context.Context, id string) context.Context {
	return withID(ctx, traceIDKey, id)
}

func TraceIDFromContext(ctx context.Context) string { return idFrom(ctx, traceIDKey) }

func WithSpanID(ctx context.Context, id string) context.Context {
	return withID(ctx, spanIDKey, id)
}

func SpanIDFromContext(ctx context.Context) string { return idFrom(ctx, spanIDKey) }

// withID skips empty identifiers so an outer value is never masked.
func withID(ctx context.Context, key ctxKey, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key).(string)
	return id
}
