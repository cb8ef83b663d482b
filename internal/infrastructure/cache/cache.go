// Package cache provides TTL key/value stores for computed results.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("cache: store closed")

// Store is a string-keyed byte cache with per-entry expiry
type Store interface {
	// Get returns the value and true on a hit. An expired entry is a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
