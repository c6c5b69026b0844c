// Package tokens persists the session token pair between runs.
package tokens

import (
	"context"
	"errors"
	"strings"

	"github.com/vidtube/client/internal/models"
)

// DefaultProfile names the row used when no profile is configured.
const DefaultProfile = "default"

var (
	// ErrIncompletePair indicates a write carrying only one half of the pair.
	ErrIncompletePair = errors.New("access and refresh tokens must be set together")
	// ErrPassphraseRequired indicates a sealed session file was opened without a passphrase.
	ErrPassphraseRequired = errors.New("session file is encrypted; a passphrase is required")
	// ErrWrongPassphrase indicates a sealed session file could not be opened.
	ErrWrongPassphrase = errors.New("session file cannot be opened with this passphrase")
)

// Store holds at most one token pair. Get returns the zero value when
// nothing is stored. Set and Clear replace the pair as a unit.
type Store interface {
	Set(ctx context.Context, tokens models.SessionTokens) error
	Get(ctx context.Context) (models.SessionTokens, error)
	Clear(ctx context.Context) error
}

func checkPair(t models.SessionTokens) error {
	if !t.Complete() {
		return ErrIncompletePair
	}
	return nil
}

func profileOrDefault(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return DefaultProfile
	}
	return profile
}
