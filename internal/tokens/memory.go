package tokens

import (
	"context"
	"sync"

	"github.com/vidtube/client/internal/models"
)

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

// Memory keeps the pair for the lifetime of the process. Tests and the
// "memory" session backend use it.
type Memory struct {
	mu     sync.RWMutex
	tokens models.SessionTokens
	writes int
}

// Set replaces the held pair.
func (m *Memory) Set(_ context.Context, tokens models.SessionTokens) error {
	if err := checkPair(tokens); err != nil {
		return err
	}
	m.mu.Lock()
	m.tokens = tokens
	m.writes++
	m.mu.Unlock()
	return nil
}

// Get returns the held pair.
func (m *Memory) Get(_ context.Context) (models.SessionTokens, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens, nil
}

// Clear drops the pair.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.tokens = models.SessionTokens{}
	m.writes++
	m.mu.Unlock()
	return nil
}

// Writes reports how many times the pair was set or cleared. Useful for tests.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
