package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/config"
)

// DraftStore is a quote.DraftRepository that owns resources
type DraftStore interface {
	quote.DraftRepository
	Close() error
}

// DraftStoreFactory creates draft stores based on configuration
type DraftStoreFactory struct {
	draftConfig           config.DraftConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DraftStoreFactoryOption is a functional option for configuring the factory
type DraftStoreFactoryOption func(*DraftStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DraftStoreFactoryOption {
	return func(f *DraftStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is false.
func WithInMemoryFallback(allow bool) DraftStoreFactoryOption {
	return func(f *DraftStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDraftStoreFactory creates a new factory
func NewDraftStoreFactory(draft config.DraftConfig, redisCfg config.RedisConfig, opts ...DraftStoreFactoryOption) *DraftStoreFactory {
	f := &DraftStoreFactory{
		draftConfig: draft,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *DraftStoreFactory) connectRedis(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateRedisStore connects to Redis and creates a Redis draft store
func (f *DraftStoreFactory) CreateRedisStore(ctx context.Context) (*RedisDraftStore, error) {
	client, err := f.connectRedis(ctx)
	if err != nil {
		return nil, err
	}
	return NewRedisDraftStoreWithClient(client, f.draftConfig.KeyPrefix,
		WithDraftTTL(f.draftConfig.TTL),
		WithConflictRetries(f.draftConfig.MaxRetries, f.draftConfig.RetryBase),
	), nil
}

// CreateIdempotencyStore creates the request key store for draft writes. It
// lives in Redis when drafts do, and in memory otherwise.
func (f *DraftStoreFactory) CreateIdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if f.draftConfig.Store != config.DraftStoreRedis {
		return NewInMemoryIdempotencyStore(), nil
	}
	client, err := f.connectRedis(ctx)
	if err == nil {
		return NewRedisIdempotencyStoreWithClient(client, defaultIdempotencyKeyPrefix), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for request keys but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory request key store", zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}

// CreateInMemoryStore creates an in-memory draft store.
// WARNING: drafts are lost on restart and are not shared across instances.
func (f *DraftStoreFactory) CreateInMemoryStore() *InMemoryDraftStore {
	return NewInMemoryDraftStore(f.draftConfig.TTL)
}

// CreateStore creates the store named by draft.store. The sql store lives in
// the persistence package and is rejected here.
func (f *DraftStoreFactory) CreateStore(ctx context.Context) (DraftStore, error) {
	switch f.draftConfig.Store {
	case config.DraftStoreMemory:
		f.logger.Warn("using in-memory quote draft store; drafts are lost on restart")
		return f.CreateInMemoryStore(), nil
	case config.DraftStoreRedis:
		// Try Redis first
		store, err := f.CreateRedisStore(ctx)
		if err == nil {
			f.logger.Info("using Redis quote draft store", zap.String("addr", f.redisConfig.Addr()))
			return store, nil
		}

		// Check if fallback is allowed
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for quote drafts but unavailable: %w", err)
		}

		// Fall back to in-memory with warning
		f.logger.Warn("Redis unavailable, falling back to in-memory quote draft store",
			zap.Error(err),
		)
		return f.CreateInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("draft store %q is not created by the cache factory", f.draftConfig.Store)
	}
}
