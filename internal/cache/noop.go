package cache

import (
	"context"
	"strings"
	"time"
)

// NoopCache is used when no Redis URL is configured: every read misses and
// writes are discarded.
type NoopCache struct{}

var _ Cache = NoopCache{}

func (NoopCache) Get(context.Context, string) (string, error) { return "", ErrMiss }

func (NoopCache) Set(context.Context, string, string, time.Duration) error { return nil }

func (NoopCache) Invalidate(context.Context, string) error { return nil }

func (NoopCache) Close() error { return nil }

// New creates a redis-backed cache when configured, otherwise a no-op one.
func New(ctx context.Context, redisURL string) (Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return NoopCache{}, nil
	}
	return NewRedisCache(ctx, redisURL)
}
