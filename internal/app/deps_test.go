package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/client/internal/config"
	"github.com/vidtube/client/internal/db"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/tokens"
)

type fakePool struct {
	closed bool
}

func (p *fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (p *fakePool) Close() { p.closed = true }

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		APIBaseURL:       "http://localhost:8000",
		HTTPTimeout:      time.Second,
		YTDLPPath:        "yt-dlp",
		YTDLPTimeout:     time.Second,
		MetadataCacheTTL: time.Minute,
		Session:          config.SessionConfig{Backend: config.BackendMemory},
		RateLimit:        config.RateLimitConfig{Requests: 5, Window: time.Second, Burst: 1},
	}

	deps, cleanup, err := buildDependencies(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer cleanup()

	if deps.Tokens == nil {
		t.Fatal("expected token store to be configured")
	}
	if deps.Client == nil || deps.Client.BaseURL() != "http://localhost:8000" {
		t.Fatal("expected api client to be configured")
	}
	if deps.Session == nil {
		t.Fatal("expected session controller to be configured")
	}
	if deps.Videos == nil || deps.Users == nil || deps.Comments == nil {
		t.Fatal("expected catalogs to be configured")
	}
	if deps.Importer == nil || deps.Metadata == nil {
		t.Fatal("expected importer to be configured")
	}
}

func TestOpenSessionStoreBackends(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		cfg   config.SessionConfig
		check func(tokens.Store) bool
	}{
		{
			name:  "memory",
			cfg:   config.SessionConfig{Backend: config.BackendMemory},
			check: func(s tokens.Store) bool { _, ok := s.(*tokens.Memory); return ok },
		},
		{
			name:  "file",
			cfg:   config.SessionConfig{Backend: config.BackendFile, Path: filepath.Join(dir, "session.json")},
			check: func(s tokens.Store) bool { _, ok := s.(*tokens.File); return ok },
		},
		{
			name:  "sqlite",
			cfg:   config.SessionConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "session.db"), Profile: "work"},
			check: func(s tokens.Store) bool { _, ok := s.(*tokens.SQLite); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup, err := openSessionStore(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("openSessionStore() error = %v", err)
			}
			if !tt.check(store) {
				t.Fatalf("unexpected store type %T", store)
			}
			if err := cleanup(); err != nil {
				t.Fatalf("cleanup: %v", err)
			}
		})
	}
}

func TestOpenSessionStorePostgresSchemaFailure(t *testing.T) {
	pool := &fakePool{}
	original := connectDB
	connectDB = func(context.Context, string) (db.Pool, error) { return pool, nil }
	t.Cleanup(func() { connectDB = original })

	_, _, err := openSessionStore(context.Background(), config.SessionConfig{Backend: config.BackendPostgres, DatabaseURL: "postgres://example"})
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !pool.closed {
		t.Fatal("expected pool to be closed after failure")
	}
}

func TestOpenSessionStoreUnknownBackend(t *testing.T) {
	if _, _, err := openSessionStore(context.Background(), config.SessionConfig{Backend: "redis"}); !errors.Is(err, errUnknownBackend) {
		t.Fatalf("expected errUnknownBackend, got %v", err)
	}
}
