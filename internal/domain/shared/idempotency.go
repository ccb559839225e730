package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that already changed state, so a
// retried request is not applied twice
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It returns false when key was
	// already recorded and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key is recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget drops key so the request may be applied again
	Forget(ctx context.Context, key string) error

	// Close releases the store's resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed request key is remembered
	TTL time.Duration

	// Enabled determines whether request keys are honored
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
