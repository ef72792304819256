package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis limiter tests")
	}
	opts, err := RedisOptions(addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	return client
}

func TestRedisOptions(t *testing.T) {
	_, err := RedisOptions("", "", 0)
	assert.Error(t, err)

	opts, err := RedisOptions("localhost:6379", "pw", 3)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
}

func TestRedisLimiter_Allow(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	limiter := NewRedisLimiter(client, "test:login:"+uuid.NewString()+":", nil)

	for i := 1; i <= 2; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.ResetAt.After(time.Now()))
}

func TestRedisLimiter_NonPositiveLimit(t *testing.T) {
	// no client needed: throttling is disabled before any Redis call
	limiter := NewRedisLimiter(nil, "", nil)

	d, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
