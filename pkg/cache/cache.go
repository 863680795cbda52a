// Package cache stores conversion results between runs.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry under the user cache directory (CLI)
//   - [RedisCache]: a shared Redis instance (HTTP server with several replicas)
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer]. A conversion key covers the SHA-256 of the input
// record and of the linac configuration snapshot, so editing the machine
// identities never serves a stale result.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Default time-to-live per entry kind.
const (
	TTLConversion = 24 * time.Hour
	TTLAperture   = 24 * time.Hour
)
