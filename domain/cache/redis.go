package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

var Module = fx.Module("cache",
	fx.Provide(NewRedisCache, func(c *RedisCache) Cache { return c }),
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// RedisCache is the Redis-backed Cache implementation used in production.
type RedisCache struct {
	client *redis.Client
	log    *slog.Logger
	prefix string
}

// NewRedisCache parses cfg.URL and returns a ready-to-use cache, verifying
// connectivity immediately. When cfg.RequireReachable is true (the
// default) a connection failure is returned as an error rather than
// deferred to the first Get/Set, matching the contract that an
// unavailable cache is fatal to a run.
func NewRedisCache(lc fx.Lifecycle, cfg *config.CacheConfig, log *slog.Logger) (*RedisCache, error) {
	log = log.With(logger.Scope("cache"))

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis url: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout
	opts.WriteTimeout = writeTimeout

	client := redis.NewClient(opts)

	c := &RedisCache{client: client, log: log, prefix: cfg.KeyPrefix}

	if cfg.RequireReachable {
		if err := c.Ping(context.Background()); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	log.Info("redis cache connected", slog.String("addr", opts.Addr))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return c, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisCache) InvalidatePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
