package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vidtube/client/internal/logging"
)

func TestRequestLoggerReusesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-123" {
		t.Fatalf("expected request id in context, got %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Fatalf("expected status in log line, got %s", buf.String())
	}
}

func TestRequestLoggerRecoversPanic(t *testing.T) {
	handler := RequestLogger(logging.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestKeyedLimiter(t *testing.T) {
	limiter := NewKeyedLimiter(1, time.Minute, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	limiter.WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("login:1.2.3.4") || !limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected burst to be allowed")
	}
	if limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected third attempt to be limited")
	}
	if !limiter.Allow("login:5.6.7.8") {
		t.Fatal("other keys must not share the bucket")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("login:9.9.9.9") {
		t.Fatal("expected fresh key to be allowed")
	}
	if limiter.Tracked() != 1 {
		t.Fatalf("expected idle keys to expire, tracking %d", limiter.Tracked())
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/healthz", http.StatusOK, slog.LevelDebug},
		{"/api/videos", http.StatusOK, slog.LevelInfo},
		{"/api/videos", http.StatusNotFound, slog.LevelWarn},
		{"/healthz", http.StatusServiceUnavailable, slog.LevelError},
	}
	for _, tt := range tests {
		if got := levelFor(tt.path, tt.status); got != tt.want {
			t.Fatalf("levelFor(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}
