package quoteapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
)

// SettledResult is the outcome of one remote validation call. Exactly one of
// Response and Err is meaningful.
type SettledResult struct {
	Response quote.ValidationResponse
	Err      error
}

// ValidationService validates batches of line items against the remote
// validator and classifies the outcomes
type ValidationService struct {
	validator      ProductValidator
	maxConcurrency int
	metrics        Metrics
	logger         *zap.Logger
}

// ValidationOption configures a ValidationService
type ValidationOption func(*ValidationService)

// WithMaxConcurrency caps in-flight validation calls per batch; 0 means no cap
func WithMaxConcurrency(n int) ValidationOption {
	return func(s *ValidationService) {
		s.maxConcurrency = n
	}
}

// WithValidationMetrics sets the metrics sink
func WithValidationMetrics(m Metrics) ValidationOption {
	return func(s *ValidationService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewValidationService creates a new ValidationService
func NewValidationService(validator ProductValidator, logger *zap.Logger, opts ...ValidationOption) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ValidationService{
		validator: validator,
		metrics:   nopMetrics{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateBatch issues one validation call per request concurrently and waits
// for all of them. The result at index i belongs to reqs[i]; a failed call
// never cancels its siblings.
func (s *ValidationService) ValidateBatch(ctx context.Context, reqs []quote.ValidationRequest) []SettledResult {
	settled := make([]SettledResult, len(reqs))
	if len(reqs) == 0 {
		return settled
	}

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := s.validator.ValidateProduct(ctx, req)
			settled[i] = SettledResult{Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return settled
}

// ValidateProducts normalizes, validates and classifies items. Items that
// cannot be normalized into a request are rejected locally; a *quote.ShapeError
// aborts the whole call.
func (s *ValidationService) ValidateProducts(ctx context.Context, items []quote.LineItemShape) (quote.ClassifiedProducts, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_validation", "validate",
		telemetry.SpanAttrItemCount, len(items),
	)
	defer span.End()
	start := time.Now()
	log := logger.WithLogger(ctx, s.logger)

	outcomes := make([]quote.ValidatedProduct, len(items))
	var (
		reqs    []quote.ValidationRequest
		reqItem []int
	)
	for i, item := range items {
		candidate, err := quote.Normalize(item)
		var shapeErr *quote.ShapeError
		switch {
		case errors.As(err, &shapeErr):
			telemetry.RecordError(span, err)
			return quote.ClassifiedProducts{}, fmt.Errorf("item %d: %w", i, err)
		case errors.Is(err, quote.ErrVariantUnresolved):
			outcomes[i] = quote.Rejected(i, item, quote.ErrVariantUnresolved.Error())
		case errors.Is(err, quote.ErrInvalidOptionID):
			outcomes[i] = quote.Rejected(i, item, err.Error())
		case err != nil:
			return quote.ClassifiedProducts{}, fmt.Errorf("item %d: %w", i, err)
		default:
			reqs = append(reqs, candidate.Request())
			reqItem = append(reqItem, i)
		}
	}

	settled := s.ValidateBatch(ctx, reqs)
	for j, idx := range reqItem {
		outcomes[idx] = ClassifySettled(idx, items[idx], settled[j])
		if settled[j].Err != nil {
			log.Warn("Product validation call failed",
				zap.Int("index", idx),
				zap.Int64("product_id", reqs[j].ProductID),
				zap.Error(settled[j].Err),
			)
		}
	}

	classified := Bucket(outcomes)
	elapsed := time.Since(start)
	s.metrics.RecordValidation(ctx, classified, elapsed)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSuccess, len(classified.Success),
		telemetry.SpanAttrWarning, len(classified.Warning),
		telemetry.SpanAttrError, len(classified.Error),
	)
	log.Info("Validated quote line items", summaryFields(classified, elapsed)...)
	return classified, nil
}

// ValidateRaw decodes raw line items at the boundary and validates them
func (s *ValidationService) ValidateRaw(ctx context.Context, raws []json.RawMessage) (quote.ClassifiedProducts, error) {
	items, err := quote.DecodeLineItems(raws)
	if err != nil {
		return quote.ClassifiedProducts{}, err
	}
	return s.ValidateProducts(ctx, items)
}
