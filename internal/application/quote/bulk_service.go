package quoteapp

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	csvimport "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/import"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
)

// BulkRequest is a quick-order request of SKUs and quantities
type BulkRequest struct {
	// SKUs fixes the request order; when empty the keys of Quantities are used
	// in sorted order
	SKUs       []string
	Quantities map[string]int
	DraftKey   string
	AddToDraft bool
}

// BulkResult is the reconciled outcome of a bulk request
type BulkResult struct {
	NotFound       []string             `json:"notFound"`
	Success        []ReconciledProduct  `json:"success"`
	Warning        []ReconciledProduct  `json:"warning"`
	Error          []ReconciledProduct  `json:"error"`
	RowErrors      []csvimport.RowError `json:"rowErrors,omitempty"`
	TotalRowErrors int                  `json:"totalRowErrors,omitempty"`
	Draft          *DraftAddResult      `json:"draft,omitempty"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{
		NotFound: []string{},
		Success:  []ReconciledProduct{},
		Warning:  []ReconciledProduct{},
		Error:    []ReconciledProduct{},
	}
}

func (r *BulkResult) add(p ReconciledProduct) {
	switch p.Status {
	case quote.StatusSuccess:
		r.Success = append(r.Success, p)
	case quote.StatusWarning:
		r.Warning = append(r.Warning, p)
	default:
		r.Error = append(r.Error, p)
	}
}

// BulkService turns SKU/quantity requests into validated, catalog-joined
// line items
type BulkService struct {
	catalog    CatalogSearcher
	validation *ValidationService
	reconciler *Reconciler
	drafts     *DraftService
	csvOptions csvimport.QuickOrderOptions
	metrics    Metrics
	logger     *zap.Logger
}

// BulkOption configures a BulkService
type BulkOption func(*BulkService)

// WithQuickOrderOptions sets the limits applied to CSV uploads
func WithQuickOrderOptions(opts csvimport.QuickOrderOptions) BulkOption {
	return func(s *BulkService) {
		s.csvOptions = opts
	}
}

// WithBulkMetrics sets the metrics sink
func WithBulkMetrics(m Metrics) BulkOption {
	return func(s *BulkService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewBulkService creates a new BulkService. drafts may be nil when requests
// never add to a draft.
func NewBulkService(catalog CatalogSearcher, validation *ValidationService, drafts *DraftService, logger *zap.Logger, opts ...BulkOption) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BulkService{
		catalog:    catalog,
		validation: validation,
		reconciler: NewReconciler(logger),
		drafts:     drafts,
		metrics:    nopMetrics{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadCSV parses a quick-order CSV and processes its rows. Invalid rows are
// reported in the result and do not stop the upload.
func (s *BulkService) UploadCSV(ctx context.Context, r io.Reader, draftKey string, addToDraft bool) (*BulkResult, error) {
	order, err := csvimport.ParseQuickOrder(r, s.csvOptions)
	if err != nil {
		return nil, fmt.Errorf("parse quick order: %w", err)
	}

	result, err := s.Process(ctx, BulkRequest{
		SKUs:       order.SKUs,
		Quantities: order.Quantities,
		DraftKey:   draftKey,
		AddToDraft: addToDraft,
	})
	if err != nil {
		return nil, err
	}
	result.RowErrors = order.Errors
	result.TotalRowErrors = order.TotalErrors
	return result, nil
}

// Process looks the requested SKUs up in the catalog, reports the ones that
// do not exist, prechecks availability, validates the rest and joins every
// outcome back to its catalog SKU. With AddToDraft set, accepted products are
// merged into the draft.
func (s *BulkService) Process(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	skus := req.SKUs
	if len(skus) == 0 {
		for sku := range req.Quantities {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
	}
	result := newBulkResult()
	if len(skus) == 0 {
		return result, nil
	}

	buyer := BuyerFromContext(ctx)
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_bulk", "process",
		telemetry.SpanAttrSKUCount, len(skus),
		telemetry.SpanAttrBuyerRole, string(buyer.Role),
	)
	defer span.End()
	log := logger.WithLogger(ctx, s.logger)

	catalog, err := s.catalog.SearchSKUs(ctx, quote.SKUSearchRequest{
		SKUs:            skus,
		CompanyID:       buyer.CompanyID,
		CustomerGroupID: buyer.CustomerGroupID,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("search SKUs: %w", err)
	}

	result.NotFound = FilterInputSkusForNotFoundProducts(skus, catalog)
	s.metrics.RecordNotFoundSKUs(ctx, len(result.NotFound))

	outcomes, err := s.validateCatalogRows(ctx, catalog, req.Quantities)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, p := range MergeValidatedWithCatalog(outcomes, catalog) {
		result.add(p)
	}

	if req.AddToDraft && s.drafts != nil {
		accepted := make([]ReconciledProduct, 0, len(result.Success)+len(result.Warning))
		accepted = append(accepted, result.Success...)
		accepted = append(accepted, result.Warning...)
		added, err := s.drafts.AddValidated(ctx, req.DraftKey, accepted)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		result.Draft = &added
	}

	log.Info("Processed bulk quote request",
		zap.Int("requested", len(skus)),
		zap.Int("not_found", len(result.NotFound)),
		zap.Int("success", len(result.Success)),
		zap.Int("warning", len(result.Warning)),
		zap.Int("error", len(result.Error)),
	)
	return result, nil
}

// validateCatalogRows returns one outcome per catalog row, in catalog order.
// Rows whose availability blocks a quote are rejected without a remote call;
// rows with an advisory availability problem are downgraded to warnings when
// the remote validator accepts them.
func (s *BulkService) validateCatalogRows(ctx context.Context, catalog []quote.CatalogProduct, quantities map[string]int) ([]quote.ValidatedProduct, error) {
	shapes := s.reconciler.MapCatalogToValidationPayload(catalog, quantities)
	outcomes := make([]quote.ValidatedProduct, len(catalog))
	advisory := make(map[int]string)

	var (
		items []quote.LineItemShape
		rowOf []int
	)
	for i, p := range catalog {
		reason := quote.CheckAvailability(p, int(shapes[i].Node.Quantity))
		msg := quote.AvailabilityMessage(reason, quote.ContextQuote, p)
		switch {
		case reason.Blocks(quote.ContextQuote):
			outcomes[i] = quote.Rejected(i, shapes[i], msg)
			continue
		case reason != quote.ReasonNone:
			advisory[i] = msg
		}
		items = append(items, shapes[i])
		rowOf = append(rowOf, i)
	}
	if len(items) == 0 {
		return outcomes, nil
	}

	classified, err := s.validation.ValidateProducts(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("validate catalog rows: %w", err)
	}
	for _, p := range classified.InOrder() {
		row := rowOf[p.Index]
		p.Index = row
		if msg, ok := advisory[row]; ok && p.Status == quote.StatusSuccess {
			p.Status = quote.StatusWarning
			p.Message = msg
		}
		outcomes[row] = p
	}
	return outcomes, nil
}
