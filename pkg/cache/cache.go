package cache

import (
	"context"
	"time"
)

// Service is a byte-oriented cache with per-entry TTL.
type Service interface {
	// Get returns the cached bytes and whether the key was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
