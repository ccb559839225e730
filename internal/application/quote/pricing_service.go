package quoteapp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
)

// PriceBreakdown is the full modifier pricing of one line
type PriceBreakdown struct {
	Modifiers []quote.PriceAdjustment `json:"modifiers"`
	Products  []quote.PriceAdjustment `json:"products"`
	Total     quote.PriceAdjustment   `json:"total"`
}

// PricingService computes modifier-driven price adjustments
type PricingService struct {
	catalog CatalogSearcher
	logger  *zap.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(catalog CatalogSearcher, logger *zap.Logger) *PricingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingService{catalog: catalog, logger: logger}
}

// GetProductExtraPrice prices the products referenced by selected
// product-list modifier values with one batched catalog search, scoped to the
// buyer. No referenced products means no lookup and an empty result.
func (s *PricingService) GetProductExtraPrice(ctx context.Context, modifiers []quote.ModifierDefinition, selected []quote.Option, buyer quote.BuyerContext) ([]quote.PriceAdjustment, error) {
	ids := quote.ReferencedProductIDs(modifiers, selected)
	if len(ids) == 0 {
		return []quote.PriceAdjustment{}, nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "quote_pricing", "product_extra_price",
		telemetry.SpanAttrBuyerRole, string(buyer.Role),
		"quote.product_ids", len(ids),
	)
	defer span.End()

	role := quote.RoleB2C
	if buyer.IsB2B() {
		role = quote.RoleB2B
	}
	products, err := s.catalog.SearchProducts(ctx, quote.ProductSearchRequest{
		ProductIDs:      ids,
		CompanyID:       buyer.CompanyID,
		CustomerGroupID: buyer.CustomerGroupID,
	}, role)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("search modifier products: %w", err)
	}

	adjustments := quote.ExtraPriceFromProducts(ids, quote.ProductsByID(products))
	if len(adjustments) < len(ids) {
		s.logger.Debug("Some modifier products could not be priced",
			zap.Int64s("product_ids", ids),
			zap.Int("priced", len(adjustments)),
		)
	}
	return adjustments, nil
}

// Price combines modifier adjusters and referenced product prices for a line
func (s *PricingService) Price(ctx context.Context, modifiers []quote.ModifierDefinition, selected []quote.Option, buyer quote.BuyerContext) (PriceBreakdown, error) {
	extra, err := s.GetProductExtraPrice(ctx, modifiers, selected, buyer)
	if err != nil {
		return PriceBreakdown{}, err
	}
	direct := quote.GetModifiersPrice(modifiers, selected)
	all := make([]quote.PriceAdjustment, 0, len(direct)+len(extra))
	all = append(all, direct...)
	all = append(all, extra...)
	return PriceBreakdown{
		Modifiers: direct,
		Products:  extra,
		Total:     quote.SumAdjustments(all),
	}, nil
}
