package session

import (
	"context"
	"sync"
)

type memstore struct {
	mu    sync.RWMutex
	flags map[string]bool // gameID|viewerID
}

func NewMemoryStore() Store {
	return &memstore{flags: make(map[string]bool)}
}

func key(gameID, viewerID string) string { return gameID + "|" + viewerID }

func (m *memstore) Flipped(ctx context.Context, gameID, viewerID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[key(gameID, viewerID)], nil
}

func (m *memstore) SetFlipped(ctx context.Context, gameID, viewerID string, flipped bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key(gameID, viewerID)] = flipped
	return nil
}
