package mockapi

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/vidtube/client/internal/models"
)

var (
	// ErrSessionNotFound indicates the presented token was never issued or was revoked.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenExpired indicates the presented token is past its lifetime.
	ErrTokenExpired = errors.New("token expired")
)

type grant struct {
	userID    string
	expiresAt time.Time
	pair      string
}

// sessionIssuer hands out opaque access/refresh pairs and resolves them back to users.
type sessionIssuer struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	access  map[string]grant
	refresh map[string]grant
}

func newSessionIssuer(accessTTL, refreshTTL time.Duration, now func() time.Time) *sessionIssuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &sessionIssuer{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		access:     make(map[string]grant),
		refresh:    make(map[string]grant),
	}
}

// Issue creates a new pair for userID.
func (s *sessionIssuer) Issue(userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	accessToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}
	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	now := s.now()
	s.mu.Lock()
	s.access[accessToken] = grant{userID: userID, expiresAt: now.Add(s.accessTTL), pair: refreshToken}
	s.refresh[refreshToken] = grant{userID: userID, expiresAt: now.Add(s.refreshTTL), pair: accessToken}
	s.mu.Unlock()

	return models.SessionTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Authenticate resolves an access token to its user.
func (s *sessionIssuer) Authenticate(accessToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.access[accessToken]
	if !ok {
		return "", ErrSessionNotFound
	}
	if s.now().After(g.expiresAt) {
		return "", ErrTokenExpired
	}
	return g.userID, nil
}

// Refresh rotates the pair: the old refresh token and its access token stop working.
func (s *sessionIssuer) Refresh(refreshToken string) (models.SessionTokens, error) {
	s.mu.Lock()
	g, ok := s.refresh[refreshToken]
	if ok {
		delete(s.refresh, refreshToken)
		delete(s.access, g.pair)
	}
	s.mu.Unlock()

	if !ok {
		return models.SessionTokens{}, ErrSessionNotFound
	}
	if s.now().After(g.expiresAt) {
		return models.SessionTokens{}, ErrTokenExpired
	}
	return s.Issue(g.userID)
}

// Revoke ends the session owning accessToken.
func (s *sessionIssuer) Revoke(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.access[accessToken]; ok {
		delete(s.refresh, g.pair)
		delete(s.access, accessToken)
	}
}

// RevokeUser ends every session of userID.
func (s *sessionIssuer) RevokeUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, g := range s.access {
		if g.userID == userID {
			delete(s.access, token)
		}
	}
	for token, g := range s.refresh {
		if g.userID == userID {
			delete(s.refresh, token)
		}
	}
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
