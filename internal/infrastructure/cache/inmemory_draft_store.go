package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

type draftEntry struct {
	items     []quote.DraftLineItem
	expiresAt time.Time // zero means no expiry
}

// InMemoryDraftStore implements quote.DraftRepository using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryDraftStore struct {
	mu        sync.Mutex
	entries   map[string]draftEntry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDraftStore creates a new in-memory draft store. Drafts untouched
// for ttl are dropped; ttl <= 0 keeps them forever. A background goroutine
// sweeps expired drafts until Close is called.
func NewInMemoryDraftStore(ttl time.Duration) *InMemoryDraftStore {
	s := &InMemoryDraftStore{
		entries:  make(map[string]draftEntry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Load returns a copy of the draft under key
func (s *InMemoryDraftStore) Load(_ context.Context, key string) ([]quote.DraftLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	return quote.CloneDraftLines(e.items), nil
}

// Update applies fn under the store lock. fn runs exactly once.
func (s *InMemoryDraftStore) Update(ctx context.Context, key string, fn func([]quote.DraftLineItem) ([]quote.DraftLineItem, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []quote.DraftLineItem
	if e, ok := s.live(key); ok {
		current = quote.CloneDraftLines(e.items)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if len(next) == 0 {
		delete(s.entries, key)
		return nil
	}
	e := draftEntry{items: quote.CloneDraftLines(next)}
	if s.ttl > 0 {
		e.expiresAt = time.Now().Add(s.ttl)
	}
	s.entries[key] = e
	return nil
}

// Clear removes the draft under key
func (s *InMemoryDraftStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// live must be called with mu held
func (s *InMemoryDraftStore) live(key string) (draftEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return draftEntry{}, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return draftEntry{}, false
	}
	return e, true
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryDraftStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryDraftStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryDraftStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of stored drafts (for testing/monitoring)
func (s *InMemoryDraftStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ quote.DraftRepository = (*InMemoryDraftStore)(nil)
