package game

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Load for an unknown game id.
	ErrNotFound = errors.New("game not found")
	// ErrConflict is returned by Update when the stored version no longer
	// matches the caller's loaded version. The caller should retry.
	ErrConflict = errors.New("game modified concurrently")
	// ErrExists is returned by Create for a duplicate game id.
	ErrExists = errors.New("game already exists")
)

// Store persists the authoritative game record.
//
// Update performs a compare-and-swap on Game.Version: the write succeeds only
// when the stored version equals the version the caller loaded, and on
// success the caller's struct is refreshed with the bumped version. This is
// what guarantees at most one committed mutation per game at a time.
type Store interface {
	Load(ctx context.Context, id string) (*Game, error)
	Create(ctx context.Context, g *Game) error
	Update(ctx context.Context, g *Game) error
}
