package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache: miss")

// Cache is a read-through cache for rendered projections, keyed by user.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Close() error
}
