package quoteapp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// MockProductValidator is a mock implementation of ProductValidator
type MockProductValidator struct {
	mock.Mock
}

func (m *MockProductValidator) ValidateProduct(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(quote.ValidationResponse), args.Error(1)
}

type validatorFunc func(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error)

func (f validatorFunc) ValidateProduct(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error) {
	return f(ctx, req)
}

// MockCatalogSearcher is a mock implementation of CatalogSearcher
type MockCatalogSearcher struct {
	mock.Mock
}

func (m *MockCatalogSearcher) SearchProducts(ctx context.Context, req quote.ProductSearchRequest, role quote.Role) ([]quote.SearchProduct, error) {
	args := m.Called(ctx, req, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quote.SearchProduct), args.Error(1)
}

func (m *MockCatalogSearcher) SearchSKUs(ctx context.Context, req quote.SKUSearchRequest) ([]quote.CatalogProduct, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quote.CatalogProduct), args.Error(1)
}

// fakeDraftRepo keeps drafts in memory behind one mutex
type fakeDraftRepo struct {
	mu     sync.Mutex
	drafts map[string][]quote.DraftLineItem
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: make(map[string][]quote.DraftLineItem)}
}

func (r *fakeDraftRepo) Load(_ context.Context, key string) ([]quote.DraftLineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]quote.DraftLineItem(nil), r.drafts[key]...), nil
}

func (r *fakeDraftRepo) Update(_ context.Context, key string, fn func([]quote.DraftLineItem) ([]quote.DraftLineItem, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := fn(append([]quote.DraftLineItem(nil), r.drafts[key]...))
	if err != nil {
		return err
	}
	r.drafts[key] = next
	return nil
}

func (r *fakeDraftRepo) Clear(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, key)
	return nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	validations []quote.ClassifiedProducts
	additions   []quote.MergeOutcome
	notFound    int
}

func (m *recordingMetrics) RecordValidation(_ context.Context, c quote.ClassifiedProducts, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, c)
}

func (m *recordingMetrics) RecordDraftAddition(_ context.Context, o quote.MergeOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.additions = append(m.additions, o)
}

func (m *recordingMetrics) RecordNotFoundSKUs(_ context.Context, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notFound += n
}

func decodeItems(t *testing.T, raws ...string) []quote.LineItemShape {
	t.Helper()
	items := make([]quote.LineItemShape, 0, len(raws))
	for _, raw := range raws {
		item, err := quote.DecodeLineItem(json.RawMessage(raw))
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func productID(id int64) any {
	return mock.MatchedBy(func(r quote.ValidationRequest) bool { return r.ProductID == id })
}

// fakeIdempotencyStore remembers keys forever
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], s.err
}

func (s *fakeIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }
