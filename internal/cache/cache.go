// Package cache provides the key-value cache every read path uses cache-aside.
// The canonical implementation is Redis; Memory backs tests.
package cache

import (
	"context"
	"time"
)

// Cache is the minimal surface the core needs from a key-value store.
// Counter keys rely on Incr/Decr being atomic in the backing server.
type Cache interface {
	// Get returns the value for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool)

	// Set stores value under key with no expiry.
	Set(ctx context.Context, key, value string) error

	// SetTimed stores value under key with a TTL.
	SetTimed(ctx context.Context, key, value string, ttl time.Duration) error

	// Remove evicts key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Incr atomically increments the counter at key, creating it at 1.
	Incr(ctx context.Context, key string) error

	// Decr atomically decrements the counter at key.
	Decr(ctx context.Context, key string) error
}
