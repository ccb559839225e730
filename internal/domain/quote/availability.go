package quote

import (
	"strconv"
	"strings"
)

// AvailabilityReason is why a catalog row cannot be ordered as requested
type AvailabilityReason string

const (
	ReasonNone           AvailabilityReason = ""
	ReasonOutOfStock     AvailabilityReason = "out_of_stock"
	ReasonLowStock       AvailabilityReason = "low_stock"
	ReasonNonPurchasable AvailabilityReason = "non_purchasable"
	ReasonBelowMinimum   AvailabilityReason = "below_minimum"
	ReasonAboveMaximum   AvailabilityReason = "above_maximum"
)

// MessageContext is the surface a message is rendered for
type MessageContext string

const (
	ContextProductPage MessageContext = "product_page"
	ContextQuote       MessageContext = "quote"
)

type messageKey struct {
	reason AvailabilityReason
	ctx    MessageContext
}

// availabilityMessages is the single policy table for out-of-stock and
// non-purchasable wording. Quote context lets buyers request unavailable
// quantities, so its wording is advisory.
var availabilityMessages = map[messageKey]string{
	{ReasonOutOfStock, ContextProductPage}:     "{sku} is out of stock",
	{ReasonOutOfStock, ContextQuote}:           "{sku} is out of stock and will be quoted on request",
	{ReasonLowStock, ContextProductPage}:       "{sku} does not have enough stock, only {stock} available",
	{ReasonLowStock, ContextQuote}:             "{sku} has only {stock} in stock, the rest will be quoted on request",
	{ReasonNonPurchasable, ContextProductPage}: "{sku} is no longer for sale",
	{ReasonNonPurchasable, ContextQuote}:       "{sku} is no longer for sale",
	{ReasonBelowMinimum, ContextProductPage}:   "You need to purchase a minimum of {min} of {sku}",
	{ReasonBelowMinimum, ContextQuote}:         "You need to purchase a minimum of {min} of {sku}",
	{ReasonAboveMaximum, ContextProductPage}:   "You can only purchase a maximum of {max} of {sku}",
	{ReasonAboveMaximum, ContextQuote}:         "You can only purchase a maximum of {max} of {sku}",
}

// blockingInQuote lists the reasons that still block a line in quote context
var blockingInQuote = map[AvailabilityReason]bool{
	ReasonNonPurchasable: true,
	ReasonBelowMinimum:   true,
	ReasonAboveMaximum:   true,
}

// CheckAvailability applies the catalog row's own stock, purchasability and
// quantity limits to a requested quantity
func CheckAvailability(p CatalogProduct, qty int) AvailabilityReason {
	switch {
	case bool(p.PurchasingDisabled):
		return ReasonNonPurchasable
	case p.MinQuantity > 0 && qty < int(p.MinQuantity):
		return ReasonBelowMinimum
	case p.MaxQuantity > 0 && qty > int(p.MaxQuantity):
		return ReasonAboveMaximum
	case bool(p.IsStock) && p.Stock <= 0:
		return ReasonOutOfStock
	case bool(p.IsStock) && qty > int(p.Stock):
		return ReasonLowStock
	}
	return ReasonNone
}

// Blocks reports whether the reason prevents the line from being added in the
// given context
func (r AvailabilityReason) Blocks(ctx MessageContext) bool {
	if r == ReasonNone {
		return false
	}
	if ctx == ContextQuote {
		return blockingInQuote[r]
	}
	return true
}

// AvailabilityMessage renders the policy message for a reason and context
func AvailabilityMessage(reason AvailabilityReason, ctx MessageContext, p CatalogProduct) string {
	tmpl, ok := availabilityMessages[messageKey{reason, ctx}]
	if !ok {
		return ""
	}
	r := strings.NewReplacer(
		"{sku}", p.VariantSKU,
		"{stock}", strconv.Itoa(int(p.Stock)),
		"{min}", strconv.Itoa(int(p.MinQuantity)),
		"{max}", strconv.Itoa(int(p.MaxQuantity)),
	)
	return r.Replace(tmpl)
}
