package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "enrichcore:wikipedia:tt123", Key("enrichcore", "wikipedia", "tt123"))
}

func TestMemoryCache_GetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

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

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "expired entry should be treated as a miss")
}

func TestMemoryCache_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "actors:list:page1", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "actors:list:page2", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "actor:id:1", []byte("c"), 0))

	require.NoError(t, c.InvalidatePattern(ctx, "actors:list:*"))

	_, found, _ := c.Get(ctx, "actors:list:page1")
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "actors:list:page2")
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "actor:id:1")
	assert.True(t, found, "keys outside the pattern survive")
}

func TestMemoryCache_Ping(t *testing.T) {
	c := NewMemoryCache()
	assert.NoError(t, c.Ping(context.Background()))
}
