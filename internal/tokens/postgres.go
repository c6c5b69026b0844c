package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/client/internal/db"
	"github.com/vidtube/client/internal/models"
)

// Schema creates the table used by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS session_tokens (
    profile TEXT PRIMARY KEY,
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// Postgres keeps one pair per profile in a shared PostgreSQL database.
type Postgres struct {
	pool    db.Pool
	profile string
}

// NewPostgres constructs a store over pool for profile.
func NewPostgres(pool db.Pool, profile string) *Postgres {
	return &Postgres{pool: pool, profile: profileOrDefault(profile)}
}

// EnsureSchema creates the session table when missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create session table: %w", err)
	}
	return nil
}

// Set upserts the profile row.
func (s *Postgres) Set(ctx context.Context, tokens models.SessionTokens) error {
	if err := checkPair(tokens); err != nil {
		return err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO session_tokens (profile, access_token, refresh_token, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (profile)
        DO UPDATE SET access_token = EXCLUDED.access_token,
                      refresh_token = EXCLUDED.refresh_token,
                      updated_at = EXCLUDED.updated_at
    `, s.profile, tokens.AccessToken, tokens.RefreshToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert session tokens: %w", err)
	}
	return nil
}

// Get reads the profile row; a missing row is the zero pair.
func (s *Postgres) Get(ctx context.Context) (models.SessionTokens, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT access_token, refresh_token
        FROM session_tokens
        WHERE profile = $1
    `, s.profile)

	var tokens models.SessionTokens
	if err := row.Scan(&tokens.AccessToken, &tokens.RefreshToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SessionTokens{}, nil
		}
		return models.SessionTokens{}, fmt.Errorf("select session tokens: %w", err)
	}
	return tokens, nil
}

// Clear deletes the profile row. Clearing an empty store is not an error.
func (s *Postgres) Clear(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM session_tokens WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("delete session tokens: %w", err)
	}
	return nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)
