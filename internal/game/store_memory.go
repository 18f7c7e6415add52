package game

import (
	"context"
	"sync"
	"time"
)

// memstore is an in-memory Store used in tests and when no redis is wanted.
// It applies the same version compare-and-swap semantics as RedisStore so
// controller behavior is identical under either backend.
type memstore struct {
	mu    sync.RWMutex
	games map[string]*Game
}

func NewMemoryStore() Store {
	return &memstore{games: make(map[string]*Game)}
}

func (m *memstore) Load(ctx context.Context, id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (m *memstore) Create(ctx context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.ID]; exists {
		return ErrExists
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *memstore) Update(ctx context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != g.Version {
		return ErrConflict
	}
	next := g.Clone()
	next.Version = g.Version + 1
	next.UpdatedAt = time.Now()
	m.games[g.ID] = next
	*g = *next.Clone()
	return nil
}
