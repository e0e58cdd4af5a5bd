//go:build integration

package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/fx/fxtest"

	"github.com/emergent-company/deathrecord/internal/config"
)

func setupRedis(t *testing.T) *RedisCache {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewRedisCache(lc, &config.CacheConfig{URL: url, KeyPrefix: "enrichcore", RequireReachable: true}, log)
	require.NoError(t, err)
	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	return c
}

func TestRedisCache_GetSetInvalidate(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, c.Invalidate(ctx, "k"))

	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "expired entry should be a miss")
}

func TestRedisCache_InvalidatePattern(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "actors:list:page1", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "actors:list:page2", []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "actor:id:1", []byte("c"), time.Minute))

	require.NoError(t, c.InvalidatePattern(ctx, "actors:list:*"))

	_, found, err := c.Get(ctx, "actors:list:page1")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = c.Get(ctx, "actor:id:1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisCache_Ping(t *testing.T) {
	c := setupRedis(t)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewRedisCache_BadURL(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewRedisCache(lc, &config.CacheConfig{URL: "not-a-url"}, log)
	require.Error(t, err)
}
