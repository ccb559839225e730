package quote

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogProduct is one variant row returned by a catalog SKU search
type CatalogProduct struct {
	VariantSKU         string   `json:"variantSku"`
	ProductID          ID       `json:"productId"`
	VariantID          ID       `json:"variantId"`
	ProductName        string   `json:"productName,omitempty"`
	Option             []string `json:"option"`
	Stock              Quantity `json:"stock"`
	IsStock            Flag     `json:"isStock"`
	PurchasingDisabled Flag     `json:"purchasingDisabled"`
	MinQuantity        Quantity `json:"minQuantity"`
	MaxQuantity        Quantity `json:"maxQuantity"`
}

// Flag is a boolean that also accepts "1"/"0" and 1/0 on the wire
type Flag bool

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(scalarText(data))
	switch s {
	case "true", "1", "yes":
		*f = true
	default:
		if n, err := strconv.ParseFloat(s, 64); err == nil && n != 0 {
			*f = true
			return nil
		}
		*f = false
	}
	return nil
}

// Role selects which catalog search endpoint serves a buyer
type Role string

const (
	// RoleB2B is a company user shopping under a company account
	RoleB2B Role = "b2b"
	// RoleB2C is a guest or personal customer
	RoleB2C Role = "b2c"
)

// BuyerContext scopes catalog and pricing lookups to a buyer
type BuyerContext struct {
	Role            Role
	CustomerID      int64
	CompanyID       int64
	CustomerGroupID int64
}

// IsB2B reports whether lookups should use the B2B search endpoint
func (b BuyerContext) IsB2B() bool {
	return b.Role == RoleB2B
}

// ProductSearchRequest is a batched catalog lookup by product id
type ProductSearchRequest struct {
	ProductIDs      []int64 `json:"productIds"`
	CompanyID       int64   `json:"companyId,omitempty"`
	CustomerGroupID int64   `json:"customerGroupId,omitempty"`
}

// SKUSearchRequest is a batched catalog lookup by variant SKU
type SKUSearchRequest struct {
	SKUs            []string `json:"skus"`
	CompanyID       int64    `json:"companyId,omitempty"`
	CustomerGroupID int64    `json:"customerGroupId,omitempty"`
}

// CalculatedPrice is a variant's price with and without tax
type CalculatedPrice struct {
	TaxExclusive decimal.Decimal `json:"tax_exclusive"`
	TaxInclusive decimal.Decimal `json:"tax_inclusive"`
}

// SearchVariant is one variant of a searched product
type SearchVariant struct {
	SKU             string          `json:"sku"`
	VariantID       int64           `json:"variant_id"`
	CalculatedPrice CalculatedPrice `json:"bc_calculated_price"`
}

// SearchProduct is one product returned by a catalog search
type SearchProduct struct {
	ID       int64           `json:"id"`
	SKU      string          `json:"sku"`
	Variants []SearchVariant `json:"variants"`
}

// Variant returns the variant whose sku matches the given sku
func (p SearchProduct) Variant(sku string) (SearchVariant, bool) {
	for _, v := range p.Variants {
		if strings.EqualFold(v.SKU, sku) {
			return v, true
		}
	}
	return SearchVariant{}, false
}

// ProductsByID indexes search results by product id
func ProductsByID(products []SearchProduct) map[int64]SearchProduct {
	out := make(map[int64]SearchProduct, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}
