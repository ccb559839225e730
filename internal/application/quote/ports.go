// Package quoteapp orchestrates validation, reconciliation, pricing and draft
// merging of quote line items.
package quoteapp

import (
	"context"
	"time"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// ProductValidator performs the remote validation call for one product
type ProductValidator interface {
	ValidateProduct(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error)
}

// CatalogSearcher performs batched catalog lookups
type CatalogSearcher interface {
	// SearchProducts looks products up by id on the B2B or B2C endpoint
	SearchProducts(ctx context.Context, req quote.ProductSearchRequest, role quote.Role) ([]quote.SearchProduct, error)
	// SearchSKUs returns the catalog rows matching the requested variant SKUs
	SearchSKUs(ctx context.Context, req quote.SKUSearchRequest) ([]quote.CatalogProduct, error)
}

// Metrics receives pipeline measurements
type Metrics interface {
	RecordValidation(ctx context.Context, classified quote.ClassifiedProducts, elapsed time.Duration)
	RecordDraftAddition(ctx context.Context, outcome quote.MergeOutcome)
	RecordNotFoundSKUs(ctx context.Context, n int)
}

type nopMetrics struct{}

func (nopMetrics) RecordValidation(context.Context, quote.ClassifiedProducts, time.Duration) {}
func (nopMetrics) RecordDraftAddition(context.Context, quote.MergeOutcome)                  {}
func (nopMetrics) RecordNotFoundSKUs(context.Context, int)                                  {}

type buyerKey struct{}

// WithBuyer stores the buyer scope on ctx
func WithBuyer(ctx context.Context, buyer quote.BuyerContext) context.Context {
	return context.WithValue(ctx, buyerKey{}, buyer)
}

// BuyerFromContext returns the buyer scope on ctx. Requests without one are
// treated as anonymous B2C shoppers.
func BuyerFromContext(ctx context.Context) quote.BuyerContext {
	if b, ok := ctx.Value(buyerKey{}).(quote.BuyerContext); ok {
		return b
	}
	return quote.BuyerContext{Role: quote.RoleB2C}
}
