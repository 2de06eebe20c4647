package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabworks/jobshop/internal/testutil"
)

func TestRedisVersionCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := NewRedisVersionCache(client, time.Minute)
	ctx := context.Background()

	t.Run("miss returns zero and false", func(t *testing.T) {
		version, ok, err := cache.GetVersion(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, version)
	})

	t.Run("set then get", func(t *testing.T) {
		jobID := uuid.NewString()
		require.NoError(t, cache.SetVersion(ctx, jobID, 7))

		version, ok, err := cache.GetVersion(ctx, jobID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.EqualValues(t, 7, version)

		ttl := client.TTL(ctx, "jobshop:job-version:"+jobID).Val()
		assert.True(t, ttl > 0 && ttl <= time.Minute)
	})

	t.Run("set overwrites", func(t *testing.T) {
		jobID := uuid.NewString()
		require.NoError(t, cache.SetVersion(ctx, jobID, 3))
		require.NoError(t, cache.SetVersion(ctx, jobID, 4))

		version, ok, err := cache.GetVersion(ctx, jobID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.EqualValues(t, 4, version)
	})

	t.Run("invalidate removes entry", func(t *testing.T) {
		jobID := uuid.NewString()
		require.NoError(t, cache.SetVersion(ctx, jobID, 12))
		require.NoError(t, cache.Invalidate(ctx, jobID))

		_, ok, err := cache.GetVersion(ctx, jobID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalidate of missing key is not an error", func(t *testing.T) {
		assert.NoError(t, cache.Invalidate(ctx, uuid.NewString()))
	})

	t.Run("corrupt entry reads as miss", func(t *testing.T) {
		jobID := uuid.NewString()
		require.NoError(t,
			client.Set(ctx, "jobshop:job-version:"+jobID, "not a number", time.Minute).Err())

		_, ok, err := cache.GetVersion(ctx, jobID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty job id rejected", func(t *testing.T) {
		_, _, err := cache.GetVersion(ctx, "")
		require.Error(t, err)
		require.Error(t, cache.SetVersion(ctx, "", 1))
		require.Error(t, cache.Invalidate(ctx, ""))
	})
}

func TestNewRedisVersionCache_DefaultTTL(t *testing.T) {
	cache := NewRedisVersionCache(nil, 0)
	assert.Equal(t, 5*time.Minute, cache.ttl)
}
