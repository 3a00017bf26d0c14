package cache

import (
	"context"
	"sync"
	"time"

	drepo "BTCWatch/internal/domain/repository"
	xlogger "BTCWatch/pkg/logger"
)

// FetchFunc produces a fresh value for a cache key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// StaleCache is a TTL cache that prefers degraded availability over hard
// failure: a failed refresh serves the retained entry (even past its TTL)
// instead of erroring, as long as any prior value exists.
//
// The lock is not held across the fetch, so two overlapping refreshes for the
// same key both run; the last writer wins.
type StaleCache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	logger  *xlogger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

// New creates a stale-serving cache.
func New[T any](logger *xlogger.Logger, metrics drepo.Metrics) *StaleCache[T] {
	return &StaleCache[T]{
		entries: make(map[string]entry[T]),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Get returns the cached value when it is younger than ttl and no refresh is
// forced; otherwise it invokes fetch. On fetch success the entry is replaced.
// On fetch failure a prior entry (even expired) is returned instead of the
// error; the failure propagates only when nothing was ever cached.
func (c *StaleCache[T]) Get(ctx context.Context, key string, ttl time.Duration, forceRefresh bool, fetch FetchFunc[T]) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok && !forceRefresh && c.now().Sub(e.fetchedAt) < ttl {
		return e.value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		if ok {
			c.logger.Warn("refresh failed, serving stale entry",
				xlogger.String("key", key),
				xlogger.Duration("age_ms", c.now().Sub(e.fetchedAt)),
				xlogger.Error(err),
			)
			c.metrics.RecordFallback("stale_cache")
			return e.value, nil
		}
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
	return value, nil
}
