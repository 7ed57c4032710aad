package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/task-manager/backend/internal/models"
)

const profileKeyPrefix = "profile:"

// RedisProfileCache stores public user profiles in Redis. Users are never
// updated, so entries only leave through their TTL.
type RedisProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{rdb: rdb, ttl: ttl}
}

func (c *RedisProfileCache) Get(ctx context.Context, id string) (*models.User, error) {
	raw, err := c.rdb.Get(ctx, profileKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Set stores u without its password hash.
func (c *RedisProfileCache) Set(ctx context.Context, u *models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, profileKeyPrefix+u.ID, raw, c.ttl).Err()
}
