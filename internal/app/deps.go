package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vidtube/client/internal/api"
	"github.com/vidtube/client/internal/catalog"
	"github.com/vidtube/client/internal/config"
	"github.com/vidtube/client/internal/db"
	"github.com/vidtube/client/internal/importer"
	"github.com/vidtube/client/internal/session"
	"github.com/vidtube/client/internal/storage"
	"github.com/vidtube/client/internal/tokens"
)

// dependencies bundles the runtime components one command works with.
type dependencies struct {
	Tokens   tokens.Store
	Client   *api.Client
	Session  *session.Controller
	Videos   *catalog.Videos
	Users    *catalog.Users
	Comments *catalog.Comments
	Importer *importer.YTDLP
	Metadata importer.Provider
}

// connectDB opens the PostgreSQL pool for the postgres session backend.
var connectDB = func(ctx context.Context, url string) (db.Pool, error) {
	return db.Connect(ctx, url)
}

// openExportSink builds the object store catalog exports are written to.
var openExportSink = func(ctx context.Context, cfg config.ObjectStoreConfig) (catalog.Sink, error) {
	return storage.NewS3Storage(ctx, storage.Config{
		Bucket:        cfg.Bucket,
		Region:        cfg.Region,
		Endpoint:      cfg.Endpoint,
		PublicBaseURL: cfg.PublicBaseURL,
		Prefix:        cfg.Prefix,
	})
}

// buildDependencies wires the session store, API client and catalogs. The
// returned cleanup releases the session backend.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (dependencies, func() error, error) {
	store, cleanup, err := openSessionStore(ctx, cfg.Session)
	if err != nil {
		return dependencies{}, nil, err
	}

	client := api.New(api.Options{
		BaseURL:    cfg.APIBaseURL,
		Endpoints:  api.DefaultEndpoints().Merge(cfg.Endpoints),
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Tokens:     store,
		Limiter:    api.NewLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst),
		Logger:     logger,
	})

	ytdlp := importer.NewYTDLP(cfg.YTDLPPath, cfg.YTDLPTimeout)

	return dependencies{
		Tokens:   store,
		Client:   client,
		Session:  session.New(client, store, logger),
		Videos:   catalog.NewVideos(client, cfg.VideoCacheTTL, logger),
		Users:    catalog.NewUsers(client, logger),
		Comments: catalog.NewComments(client, logger),
		Importer: ytdlp,
		Metadata: importer.NewCachingProvider(ytdlp, cfg.MetadataCacheTTL),
	}, cleanup, nil
}

func openSessionStore(ctx context.Context, cfg config.SessionConfig) (tokens.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return tokens.NewMemory(), noop, nil
	case config.BackendFile, "":
		return tokens.NewFile(cfg.Path, cfg.Passphrase), noop, nil
	case config.BackendSQLite:
		store, err := tokens.OpenSQLite(ctx, cfg.Path, cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendPostgres:
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := tokens.NewPostgres(pool, cfg.Profile)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() error { pool.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}
}

var errUnknownBackend = errors.New("unknown session backend")
