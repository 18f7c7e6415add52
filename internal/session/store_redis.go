package session

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Flip flags are viewer comfort, not game state; let them age out.
const ttlFlip = 30 * 24 * time.Hour

type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) keyFlip(gameID, viewerID string) string {
	return "vchess:board:flip:" + strings.TrimSpace(gameID) + ":" + strings.TrimSpace(viewerID)
}

func (s *RedisStore) Flipped(ctx context.Context, gameID, viewerID string) (bool, error) {
	v, err := s.rdb.Get(ctx, s.keyFlip(gameID, viewerID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *RedisStore) SetFlipped(ctx context.Context, gameID, viewerID string, flipped bool) error {
	v := "0"
	if flipped {
		v = "1"
	}
	return s.rdb.Set(ctx, s.keyFlip(gameID, viewerID), v, ttlFlip).Err()
}
