package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithRequestID(ctx, "")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected empty id to keep outer value, got %q", got)
	}
	if got := TraceIDFromContext(ctx); got != "" {
		t.Fatalf("expected no trace id, got %q", got)
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger without one on the context")
	}
}

func TestSpanLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "debug", "json"))

	ctx, parent := StartSpan(ctx, "catalog.load")
	traceID := TraceIDFromContext(ctx)
	_, child := StartSpan(ctx, "api.request")
	child.Fail(errors.New("boom"))
	child.End()
	parent.End()

	out := buf.String()
	if traceID == "" || strings.Count(out, traceID) != 2 {
		t.Fatalf("expected both spans to share trace %q, got %s", traceID, out)
	}
	if !strings.Contains(out, `"msg":"span failed"`) || !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("expected failure entry, got %s", out)
	}
	if !strings.Contains(out, "parent_span_id") {
		t.Fatalf("expected child to reference its parent, got %s", out)
	}
}
