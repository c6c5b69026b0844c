package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vidtube/client/internal/models"
)

// SQLite keeps one pair per profile in a local database file.
type SQLite struct {
	db      *sql.DB
	profile string
}

// OpenSQLite opens (or creates) the database at dsn. Accepted forms are
// "sqlite:./session.db", "file:./session.db" or a plain path.
func OpenSQLite(ctx context.Context, dsn, profile string) (*SQLite, error) {
	db, err := sql.Open("sqlite", normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store, err := NewSQLite(ctx, db, profile)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLite wraps an existing handle, creating the table if needed.
func NewSQLite(ctx context.Context, db *sql.DB, profile string) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session_tokens (
		profile TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}
	return &SQLite{db: db, profile: profileOrDefault(profile)}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Set upserts the profile row.
func (s *SQLite) Set(ctx context.Context, tokens models.SessionTokens) error {
	if err := checkPair(tokens); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_tokens (profile, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`, s.profile, tokens.AccessToken, tokens.RefreshToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert session tokens: %w", err)
	}
	return nil
}

// Get reads the profile row.
func (s *SQLite) Get(ctx context.Context) (models.SessionTokens, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token
		FROM session_tokens
		WHERE profile = ?
	`, s.profile)

	var tokens models.SessionTokens
	if err := row.Scan(&tokens.AccessToken, &tokens.RefreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SessionTokens{}, nil
		}
		return models.SessionTokens{}, fmt.Errorf("select session tokens: %w", err)
	}
	return tokens, nil
}

// Clear deletes the profile row.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE profile = ?`, s.profile); err != nil {
		return fmt.Errorf("delete session tokens: %w", err)
	}
	return nil
}

func normalizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "./session.db"
	}
	if idx := strings.Index(dsn, ":"); idx != -1 {
		prefix := dsn[:idx]
		if prefix == "sqlite3" || prefix == "sqlite" {
			dsn = strings.TrimSpace(dsn[idx+1:])
		}
	}

	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + filepath.Clean(dsn)
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	return dsn
}
