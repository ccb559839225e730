package quote

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ModifierTypeProductList is a modifier whose values reference other products
const ModifierTypeProductList = "product_list_with_images"

// ModifierDefinition is a product customization option that may adjust price
type ModifierDefinition struct {
	ID           int64                 `json:"id"`
	Type         string                `json:"type"`
	OptionValues []ModifierOptionValue `json:"option_values"`
}

// ModifierOptionValue is one selectable value of a modifier
type ModifierOptionValue struct {
	ID        int64              `json:"id"`
	ValueData *ModifierValueData `json:"value_data,omitempty"`
	Adjusters *Adjusters         `json:"adjusters,omitempty"`
}

// ModifierValueData carries the referenced product of a product-list value
type ModifierValueData struct {
	ProductID ID `json:"product_id"`
}

// Adjusters groups the adjustments a modifier value applies
type Adjusters struct {
	Price *PriceAdjuster `json:"price,omitempty"`
}

// PriceAdjuster is a price adjustment attached to a modifier value
type PriceAdjuster struct {
	Adjuster      string          `json:"adjuster"`
	AdjusterValue decimal.Decimal `json:"adjuster_value"`
}

// PriceAdjustment is an extra amount added to a line's price
type PriceAdjustment struct {
	AdditionalCalculatedPrice    decimal.Decimal `json:"additionalCalculatedPrice"`
	AdditionalCalculatedPriceTax decimal.Decimal `json:"additionalCalculatedPriceTax"`
}

// selectedValue returns the selected value for a modifier, if any
func selectedValue(m ModifierDefinition, selected []Option) (ModifierOptionValue, bool) {
	for _, opt := range selected {
		if int64(opt.OptionID) != m.ID {
			continue
		}
		valueID, err := strconv.ParseInt(opt.OptionValue, 10, 64)
		if err != nil {
			return ModifierOptionValue{}, false
		}
		for _, v := range m.OptionValues {
			if v.ID == valueID {
				return v, true
			}
		}
		return ModifierOptionValue{}, false
	}
	return ModifierOptionValue{}, false
}

// GetModifiersPrice returns one adjustment per selected modifier value that
// carries a price adjuster. It never fails; no modifiers or no selections
// yield an empty list.
func GetModifiersPrice(modifiers []ModifierDefinition, selected []Option) []PriceAdjustment {
	out := []PriceAdjustment{}
	if len(modifiers) == 0 || len(selected) == 0 {
		return out
	}
	for _, m := range modifiers {
		if len(m.OptionValues) == 0 {
			continue
		}
		v, ok := selectedValue(m, selected)
		if !ok || v.Adjusters == nil || v.Adjusters.Price == nil {
			continue
		}
		out = append(out, PriceAdjustment{
			AdditionalCalculatedPrice:    v.Adjusters.Price.AdjusterValue,
			AdditionalCalculatedPriceTax: decimal.Zero,
		})
	}
	return out
}

// ReferencedProductIDs collects, in modifier order and without duplicates,
// the products referenced by selected product-list modifier values
func ReferencedProductIDs(modifiers []ModifierDefinition, selected []Option) []int64 {
	ids := []int64{}
	seen := make(map[int64]bool)
	for _, m := range modifiers {
		if m.Type != ModifierTypeProductList {
			continue
		}
		v, ok := selectedValue(m, selected)
		if !ok || v.ValueData == nil || v.ValueData.ProductID == 0 {
			continue
		}
		id := int64(v.ValueData.ProductID)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// ExtraPriceFromProducts resolves referenced products into adjustments. The
// price is the tax-exclusive price of the variant matching the product sku;
// the tax part is that variant's inclusive minus exclusive price.
func ExtraPriceFromProducts(ids []int64, products map[int64]SearchProduct) []PriceAdjustment {
	out := []PriceAdjustment{}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			continue
		}
		variant, ok := p.Variant(p.SKU)
		if !ok {
			continue
		}
		price := variant.CalculatedPrice
		out = append(out, PriceAdjustment{
			AdditionalCalculatedPrice:    price.TaxExclusive,
			AdditionalCalculatedPriceTax: price.TaxInclusive.Sub(price.TaxExclusive),
		})
	}
	return out
}

// GetQuickAddProductExtraPrice is the network-free variant of product extra
// pricing for bulk flows that have already fetched the referenced products
func GetQuickAddProductExtraPrice(allOptions []ModifierDefinition, selected []Option, preResolved map[int64]SearchProduct) []PriceAdjustment {
	return ExtraPriceFromProducts(ReferencedProductIDs(allOptions, selected), preResolved)
}

// SumAdjustments totals a list of adjustments
func SumAdjustments(adjustments []PriceAdjustment) PriceAdjustment {
	total := PriceAdjustment{AdditionalCalculatedPrice: decimal.Zero, AdditionalCalculatedPriceTax: decimal.Zero}
	for _, a := range adjustments {
		total.AdditionalCalculatedPrice = total.AdditionalCalculatedPrice.Add(a.AdditionalCalculatedPrice)
		total.AdditionalCalculatedPriceTax = total.AdditionalCalculatedPriceTax.Add(a.AdditionalCalculatedPriceTax)
	}
	return total
}
