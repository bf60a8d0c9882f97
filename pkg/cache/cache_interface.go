package cache

import (
	"context"
	"time"
)

// Cache is the contract for the read-cache layer. Implementations marshal
// values to JSON; a miss leaves dest untouched.
type Cache interface {
	// Get reads key into dest. found reports a hit.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)

	// Set stores value under key with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern.
	DeletePattern(ctx context.Context, pattern string) error

	// Ping verifies the connection.
	Ping(ctx context.Context) error
}
