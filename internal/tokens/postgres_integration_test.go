package tokens

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/client/internal/models"
)

var testPool *pgxpool.Pool

// TestMain starts a throwaway CockroachDB node when VIDTUBE_INTEGRATION=1.
// Without it the PostgreSQL tests are skipped and the rest run as usual.
func TestMain(m *testing.M) {
	if os.Getenv("VIDTUBE_INTEGRATION") != "1" {
		os.Exit(m.Run())
	}

	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := NewPostgres(pool, "").EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "create schema: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func resetDatabase(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("set VIDTUBE_INTEGRATION=1 to run PostgreSQL tests")
	}
	if _, err := testPool.Exec(context.Background(), "TRUNCATE TABLE session_tokens"); err != nil {
		t.Fatalf("truncate session_tokens: %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	resetDatabase(t)
	exerciseStore(t, NewPostgres(testPool, "laptop"))
}

func TestPostgresStoreProfiles(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()

	laptop := NewPostgres(testPool, "laptop")
	desktop := NewPostgres(testPool, "desktop")

	if err := laptop.Set(ctx, models.SessionTokens{AccessToken: "L", RefreshToken: "LR"}); err != nil {
		t.Fatalf("set laptop: %v", err)
	}
	if err := desktop.Set(ctx, models.SessionTokens{AccessToken: "D", RefreshToken: "DR"}); err != nil {
		t.Fatalf("set desktop: %v", err)
	}
	if err := desktop.Clear(ctx); err != nil {
		t.Fatalf("clear desktop: %v", err)
	}

	got, err := laptop.Get(ctx)
	if err != nil {
		t.Fatalf("get laptop: %v", err)
	}
	if got.AccessToken != "L" || got.RefreshToken != "LR" {
		t.Fatalf("expected laptop tokens to survive, got %+v", got)
	}
}
