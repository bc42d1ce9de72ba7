// Package cache keeps a join-code → room-id lookaside in Redis. Joining by
// code is the one read that arrives cold (the code is typed or pasted, no
// room id in hand), so it gets a cache in front of Postgres.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "roomhub:joincode:"
	ttl       = 10 * time.Minute
)

type RoomCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRoomCache(redisURL string, logger *zap.Logger) (*RoomCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RoomCache{rdb: redis.NewClient(opts), logger: logger}, nil
}

func (c *RoomCache) Close() error {
	return c.rdb.Close()
}

// GetRoomID returns the cached room id for a join code. Cache errors are
// logged and reported as misses; the caller falls through to Postgres.
func (c *RoomCache) GetRoomID(ctx context.Context, code string) (uuid.UUID, bool) {
	val, err := c.rdb.Get(ctx, keyPrefix+code).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("join-code cache read failed", zap.Error(err))
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *RoomCache) SetRoomID(ctx context.Context, code string, roomID uuid.UUID) {
	if err := c.rdb.Set(ctx, keyPrefix+code, roomID.String(), ttl).Err(); err != nil {
		c.logger.Warn("join-code cache write failed", zap.Error(err))
	}
}

// Invalidate drops the mapping; called when a room is deleted or archived
// so stale entries cannot admit joiners past a lifecycle change.
func (c *RoomCache) Invalidate(ctx context.Context, code string) {
	if err := c.rdb.Del(ctx, keyPrefix+code).Err(); err != nil {
		c.logger.Warn("join-code cache invalidation failed", zap.Error(err))
	}
}
