package contracts

import (
	"context"
	"time"
)

// Cache is the shared key/value capability behind sessions, CSRF tokens and
// rate-limit counters. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl <= 0 stores the key without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Increment atomically adds one to the integer stored under key. When
	// the key does not exist it is created with value 1 and the given ttl;
	// an existing key keeps its expiry.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Take returns the value under key and deletes it in one step, so only
	// one caller can observe it.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// TTL reports the remaining lifetime of key, or 0 if it never expires.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Close() error
}
