package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

const defaultDraftKeyPrefix = "b2b:quote-draft:"

// RedisDraftStore implements quote.DraftRepository using Redis. Each draft is
// one JSON value; updates use WATCH/MULTI and are retried when another writer
// touches the key first.
type RedisDraftStore struct {
	client     redis.UniversalClient
	keyPrefix  string
	ttl        time.Duration
	maxRetries uint64
	retryBase  time.Duration
}

// RedisDraftStoreOption configures a RedisDraftStore
type RedisDraftStoreOption func(*RedisDraftStore)

// WithDraftTTL expires drafts that have not been written for ttl
func WithDraftTTL(ttl time.Duration) RedisDraftStoreOption {
	return func(s *RedisDraftStore) {
		s.ttl = ttl
	}
}

// WithConflictRetries sets how often a conflicting update is retried and the
// base of its exponential backoff
func WithConflictRetries(maxRetries int, base time.Duration) RedisDraftStoreOption {
	return func(s *RedisDraftStore) {
		if maxRetries >= 0 {
			s.maxRetries = uint64(maxRetries)
		}
		if base > 0 {
			s.retryBase = base
		}
	}
}

// NewRedisDraftStoreWithClient creates a store with an existing Redis client
func NewRedisDraftStoreWithClient(client redis.UniversalClient, keyPrefix string, opts ...RedisDraftStoreOption) *RedisDraftStore {
	if keyPrefix == "" {
		keyPrefix = defaultDraftKeyPrefix
	}
	s := &RedisDraftStore{
		client:     client,
		keyPrefix:  keyPrefix,
		maxRetries: 10,
		retryBase:  5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the draft under key; a missing key is an empty draft
func (s *RedisDraftStore) Load(ctx context.Context, key string) ([]quote.DraftLineItem, error) {
	return s.read(ctx, s.client, s.keyPrefix+key)
}

// Update applies fn inside a WATCH transaction, retrying with backoff when
// the key changes before EXEC. Exhausted retries yield quote.ErrDraftConflict.
func (s *RedisDraftStore) Update(ctx context.Context, key string, fn func([]quote.DraftLineItem) ([]quote.DraftLineItem, error)) error {
	rkey := s.keyPrefix + key

	txn := func(tx *redis.Tx) error {
		items, err := s.read(ctx, tx, rkey)
		if err != nil {
			return err
		}
		next, err := fn(items)
		if err != nil {
			return err
		}
		var data []byte
		if len(next) > 0 {
			if data, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode quote draft: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, rkey)
			} else {
				pipe.Set(ctx, rkey, data, s.ttl)
			}
			return nil
		})
		return err
	}

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := s.client.Watch(ctx, txn, rkey)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return quote.ErrDraftConflict
	}
	return err
}

// Clear removes the draft under key
func (s *RedisDraftStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to clear quote draft: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisDraftStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisDraftStore) Close() error {
	return s.client.Close()
}

func (s *RedisDraftStore) read(ctx context.Context, c redis.Cmdable, rkey string) ([]quote.DraftLineItem, error) {
	data, err := c.Get(ctx, rkey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quote draft: %w", err)
	}
	var items []quote.DraftLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode quote draft: %w", err)
	}
	return items, nil
}

func (s *RedisDraftStore) backoff() retry.Backoff {
	b := retry.NewExponential(s.retryBase)
	b = retry.WithCappedDuration(50*s.retryBase, b)
	b = retry.WithJitter(s.retryBase, b)
	return retry.WithMaxRetries(s.maxRetries, b)
}

var _ quote.DraftRepository = (*RedisDraftStore)(nil)
