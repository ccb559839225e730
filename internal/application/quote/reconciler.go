package quoteapp

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// FilterInputSkusForNotFoundProducts returns the requested SKUs that have no
// catalog row, in request order and with their original casing
func FilterInputSkusForNotFoundProducts(requested []string, catalog []quote.CatalogProduct) []string {
	found := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		found[quote.FoldSKU(p.VariantSKU)] = struct{}{}
	}
	notFound := []string{}
	for _, sku := range requested {
		if _, ok := found[quote.FoldSKU(sku)]; !ok {
			notFound = append(notFound, sku)
		}
	}
	return notFound
}

// ReconciledProduct is a validated product joined back to its catalog SKU.
// VariantSKU is empty when no catalog row matches.
type ReconciledProduct struct {
	quote.ValidatedProduct
	VariantSKU string
}

// MarshalJSON adds variantSku to the validated product's JSON form
func (r ReconciledProduct) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.ValidatedProduct)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	sku, err := json.Marshal(r.VariantSKU)
	if err != nil {
		return nil, err
	}
	fields["variantSku"] = sku
	return json.Marshal(fields)
}

// Reconciler joins validation results with catalog search results
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// MapCatalogToValidationPayload builds one cart-node line item per catalog row.
// The quantity is looked up case-insensitively by SKU and defaults to 0;
// malformed option strings on the row are skipped.
func (r *Reconciler) MapCatalogToValidationPayload(catalog []quote.CatalogProduct, skuQuantities map[string]int) []quote.CartNodeShape {
	qty := make(map[string]int, len(skuQuantities))
	for sku, q := range skuQuantities {
		qty[quote.FoldSKU(sku)] += q
	}

	out := make([]quote.CartNodeShape, 0, len(catalog))
	for _, p := range catalog {
		options, skipped := quote.ParseOptionList(p.Option)
		for _, e := range skipped {
			r.logger.Debug("Skipping malformed catalog option",
				zap.String("sku", p.VariantSKU),
				zap.Int("option_index", e.Index),
				zap.Error(e.Err),
			)
		}
		out = append(out, quote.NewCartNodeShape(
			p.VariantSKU,
			int64(p.ProductID),
			int64(p.VariantID),
			qty[quote.FoldSKU(p.VariantSKU)],
			options,
		))
	}
	return out
}

// MergeValidatedWithCatalog attaches the catalog SKU to every validated
// product. Products are matched by product and variant id, falling back to
// the first row with the same product id. No product is ever dropped.
func MergeValidatedWithCatalog(validated []quote.ValidatedProduct, catalog []quote.CatalogProduct) []ReconciledProduct {
	type variantKey struct{ product, variant int64 }
	byVariant := make(map[variantKey]string, len(catalog))
	byProduct := make(map[int64]string, len(catalog))
	for _, p := range catalog {
		k := variantKey{int64(p.ProductID), int64(p.VariantID)}
		if _, ok := byVariant[k]; !ok {
			byVariant[k] = p.VariantSKU
		}
		if _, ok := byProduct[int64(p.ProductID)]; !ok {
			byProduct[int64(p.ProductID)] = p.VariantSKU
		}
	}

	out := make([]ReconciledProduct, 0, len(validated))
	for _, v := range validated {
		rp := ReconciledProduct{ValidatedProduct: v}
		if v.Product != nil {
			// the partial candidate still carries the ids when normalization failed
			candidate, _ := quote.Normalize(v.Product)
			if sku, ok := byVariant[variantKey{candidate.ProductID, candidate.VariantID}]; ok {
				rp.VariantSKU = sku
			} else {
				rp.VariantSKU = byProduct[candidate.ProductID]
			}
		}
		out = append(out, rp)
	}
	return out
}
