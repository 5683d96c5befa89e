package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a retried mutation is not applied
// twice. A key is first claimed, then either completed with the response to
// replay or released so the request can be retried.
type IdempotencyStore interface {
	// Claim reserves key for ttl.
	// Returns true if the key was newly claimed, false if it was already taken
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the response for a claimed key
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error

	// Lookup returns the stored response for key. found is false for unknown
	// keys; a claimed but unfinished key is found with a nil response.
	Lookup(ctx context.Context, key string) (response []byte, found bool, err error)

	// Release frees a key whose request failed so it can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks repeats
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
