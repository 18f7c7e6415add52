// Package session holds transient per-viewer display state. Losing it only
// resets board orientation; game correctness never depends on it.
package session

import "context"

// Store keeps the boardFlipped preference per (game, viewer). Missing
// entries read as false.
type Store interface {
	Flipped(ctx context.Context, gameID, viewerID string) (bool, error)
	SetFlipped(ctx context.Context, gameID, viewerID string, flipped bool) error
}
