// Package cache provides a best-effort Redis filter over already
// persisted filenames. It only saves redundant upserts; idempotency
// rests on the store's upsert semantics, never on this cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a filename is remembered.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "images:seen:"
)

type SeenFilter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSeenFilter(rdb *redis.Client) *SeenFilter {
	return &SeenFilter{rdb: rdb, ttl: DefaultTTL}
}

// IsNew returns true if the filename has not been seen before, marking
// it seen atomically in the same call.
func (f *SeenFilter) IsNew(ctx context.Context, fileName string) (bool, error) {
	key := keyPrefix + fileName
	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("seen-filter SETNX: %w", err)
	}
	return set, nil
}

// Ping checks the Redis connection at startup.
func (f *SeenFilter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return f.rdb.Ping(ctx).Err()
}
