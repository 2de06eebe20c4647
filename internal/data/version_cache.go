package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVersionCache caches job version tokens so the ETag gate can reject
// obviously stale requests without a database round-trip. It is strictly a
// fast path: misses and errors fall through to the authoritative in-
// transaction check, and entries expire so a lost invalidation self-heals.
type RedisVersionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisVersionCache creates a version cache with the given TTL. A zero
// TTL defaults to five minutes.
func NewRedisVersionCache(client redis.UniversalClient, ttl time.Duration) *RedisVersionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisVersionCache{client: client, ttl: ttl}
}

func versionKey(jobID string) string {
	return "jobshop:job-version:" + jobID
}

// GetVersion returns (version, true) on a hit and (0, false) on a miss.
func (c *RedisVersionCache) GetVersion(ctx context.Context, jobID string) (int64, bool, error) {
	if jobID == "" {
		return 0, false, errors.New("job id cannot be empty")
	}

	raw, err := c.client.Get(ctx, versionKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get version: %w", err)
	}

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Corrupt entry; treat as a miss rather than poisoning the gate.
		return 0, false, nil
	}
	return version, true, nil
}

// SetVersion stores the latest committed version for a job.
func (c *RedisVersionCache) SetVersion(ctx context.Context, jobID string, version int64) error {
	if jobID == "" {
		return errors.New("job id cannot be empty")
	}
	return c.client.Set(ctx, versionKey(jobID), strconv.FormatInt(version, 10), c.ttl).Err()
}

// Invalidate removes a job's cached version.
func (c *RedisVersionCache) Invalidate(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id cannot be empty")
	}
	return c.client.Del(ctx, versionKey(jobID)).Err()
}
