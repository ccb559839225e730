package quoteapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
)

// ErrDraftKeyRequired is returned when a draft operation has no key
var ErrDraftKeyRequired = shared.NewDomainError("INVALID_INPUT", "Quote draft key is required")

// DraftAddResult summarizes adding validated products to a draft
type DraftAddResult struct {
	Merged   int `json:"merged"`
	Appended int `json:"appended"`
	Skipped  int `json:"skipped"`
}

// DraftService merges line items into persisted quote drafts
type DraftService struct {
	repo           quote.DraftRepository
	metrics        Metrics
	logger         *zap.Logger
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
}

// DraftOption configures a DraftService
type DraftOption func(*DraftService)

// WithIdempotency remembers request keys in store for ttl so a retried
// addition is applied once
func WithIdempotency(store shared.IdempotencyStore, ttl time.Duration) DraftOption {
	return func(s *DraftService) {
		s.idempotency = store
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// NewDraftService creates a new DraftService. metrics may be nil.
func NewDraftService(repo quote.DraftRepository, metrics Metrics, logger *zap.Logger, opts ...DraftOption) *DraftService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DraftService{
		repo:           repo,
		metrics:        metrics,
		logger:         logger,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddQuoteDraftProduce adds qty of candidate to the draft under key: an
// existing line with the same SKU and equivalent options grows by qty,
// otherwise a new line is appended. The read-modify-write is atomic per key.
func (s *DraftService) AddQuoteDraftProduce(ctx context.Context, key string, candidate quote.DraftLineItem, qty int, options []quote.Option) (quote.MergeOutcome, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrDraftKeyRequired
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_draft", "add",
		telemetry.SpanAttrDraftKey, key,
	)
	defer span.End()

	var outcome quote.MergeOutcome
	err := s.repo.Update(ctx, key, func(items []quote.DraftLineItem) ([]quote.DraftLineItem, error) {
		var next []quote.DraftLineItem
		next, outcome = quote.MergeDraftLine(items, candidate, qty, options)
		return next, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("add to quote draft: %w", err)
	}

	s.metrics.RecordDraftAddition(ctx, outcome)
	telemetry.SetAttributes(span, telemetry.SpanAttrMergeState, string(outcome))
	logger.WithLogger(ctx, s.logger).Debug("Quote draft line added",
		zap.String("sku", candidate.Node.VariantSKU),
		zap.Int("quantity", qty),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

// AddQuoteDraftProduceOnce is AddQuoteDraftProduce guarded by a client
// request key. A key already applied to this draft returns OutcomeReplayed
// and leaves the draft unchanged; an empty key or no store applies directly.
func (s *DraftService) AddQuoteDraftProduceOnce(ctx context.Context, key, requestKey string, candidate quote.DraftLineItem, qty int, options []quote.Option) (quote.MergeOutcome, error) {
	if s.idempotency == nil || requestKey == "" {
		return s.AddQuoteDraftProduce(ctx, key, candidate, qty, options)
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrDraftKeyRequired
	}

	guard := key + "|" + requestKey
	isNew, err := s.idempotency.MarkProcessed(ctx, guard, s.idempotencyTTL)
	if err != nil {
		return "", fmt.Errorf("record request key: %w", err)
	}
	if !isNew {
		logger.WithLogger(ctx, s.logger).Info("Replayed quote draft addition ignored",
			zap.String("request_key", requestKey),
		)
		return quote.OutcomeReplayed, nil
	}

	outcome, err := s.AddQuoteDraftProduce(ctx, key, candidate, qty, options)
	if err != nil {
		if ferr := s.idempotency.Forget(ctx, guard); ferr != nil {
			logger.WithLogger(ctx, s.logger).Warn("Failed to release request key", zap.Error(ferr))
		}
		return "", err
	}
	return outcome, nil
}

// AddValidated adds every successful or warned product to the draft in one
// atomic update. Products without a resolved SKU, a variant or a positive
// quantity are skipped.
func (s *DraftService) AddValidated(ctx context.Context, key string, products []ReconciledProduct) (DraftAddResult, error) {
	if strings.TrimSpace(key) == "" {
		return DraftAddResult{}, ErrDraftKeyRequired
	}

	var result DraftAddResult
	var outcomes []quote.MergeOutcome
	err := s.repo.Update(ctx, key, func(items []quote.DraftLineItem) ([]quote.DraftLineItem, error) {
		result = DraftAddResult{}
		outcomes = outcomes[:0]
		for _, p := range products {
			if p.Status == quote.StatusError || p.VariantSKU == "" || p.Product == nil {
				result.Skipped++
				continue
			}
			candidate, err := quote.Normalize(p.Product)
			if err != nil || candidate.Quantity <= 0 {
				result.Skipped++
				continue
			}
			line := quote.DraftLineItem{Node: quote.DraftNode{
				VariantSKU:     p.VariantSKU,
				ProductID:      candidate.ProductID,
				VariantID:      candidate.VariantID,
				ProductsSearch: quote.ProductsSearchOf(p.Product),
			}}
			var outcome quote.MergeOutcome
			items, outcome = quote.MergeDraftLine(items, line, candidate.Quantity, candidate.ProductOptions)
			outcomes = append(outcomes, outcome)
			if outcome == quote.OutcomeMerged {
				result.Merged++
			} else {
				result.Appended++
			}
		}
		return items, nil
	})
	if err != nil {
		return DraftAddResult{}, fmt.Errorf("add validated products to quote draft: %w", err)
	}

	for _, o := range outcomes {
		s.metrics.RecordDraftAddition(ctx, o)
	}
	logger.WithLogger(ctx, s.logger).Info("Validated products added to quote draft",
		zap.Int("merged", result.Merged),
		zap.Int("appended", result.Appended),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Draft returns the lines of the draft under key; a missing draft is empty
func (s *DraftService) Draft(ctx context.Context, key string) ([]quote.DraftLineItem, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrDraftKeyRequired
	}
	items, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load quote draft: %w", err)
	}
	if items == nil {
		items = []quote.DraftLineItem{}
	}
	return items, nil
}

// Clear removes the draft under key
func (s *DraftService) Clear(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrDraftKeyRequired
	}
	if err := s.repo.Clear(ctx, key); err != nil {
		return fmt.Errorf("clear quote draft: %w", err)
	}
	return nil
}
