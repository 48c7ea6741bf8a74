package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "emergency:status:"

// StatusCache keeps a short-lived copy of each event's status in Redis so
// dashboards can poll without hitting Postgres. The store stays
// authoritative; cache misses and errors fall back to it.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) Set(ctx context.Context, emergencyID, status string) error {
	key := statusKeyPrefix + emergencyID
	return c.client.Set(ctx, key, status, c.ttl).Err()
}

// Get returns (status, found). A missing key is a miss, not an error.
func (c *StatusCache) Get(ctx context.Context, emergencyID string) (string, bool, error) {
	key := statusKeyPrefix + emergencyID
	status, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("status cache read failed: %w", err)
	}
	return status, true, nil
}

func (c *StatusCache) Invalidate(ctx context.Context, emergencyID string) error {
	return c.client.Del(ctx, statusKeyPrefix+emergencyID).Err()
}
