package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// MaxItemsPerRequest bounds the line items accepted by one validate call
const MaxItemsPerRequest = 500

// ValidateRequest carries raw line items in any of the accepted shapes
type ValidateRequest struct {
	Items []json.RawMessage `json:"items" binding:"required,min=1,max=500"`
}

// BulkSKURequest is the JSON form of a quick-order upload
type BulkSKURequest struct {
	SKUs       map[string]int `json:"skus" binding:"required,min=1,max=500,dive,keys,required,max=255,endkeys,gte=0,lte=1000000"`
	AddToDraft bool           `json:"addToDraft"`
}

// ModifierPriceRequest asks for the price impact of selected modifier values
type ModifierPriceRequest struct {
	Modifiers       []quote.ModifierDefinition `json:"modifiers" binding:"required,dive"`
	SelectedOptions []quote.Option             `json:"selectedOptions"`
}

// DraftItemRequest adds one line item to the quote draft. Item may be any
// accepted line item shape; Quantity overrides the item's own quantity when
// positive.
type DraftItemRequest struct {
	VariantSKU  string          `json:"variantSku" binding:"required,max=255"`
	ProductName string          `json:"productName" binding:"max=255"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Quantity    int             `json:"quantity" binding:"gte=0,lte=1000000"`
	Item        json.RawMessage `json:"item" binding:"required"`
}

// DraftItemResponse reports how an item was added to the draft
type DraftItemResponse struct {
	Outcome quote.MergeOutcome    `json:"outcome"`
	Items   []quote.DraftLineItem `json:"items"`
}

// DraftResponse is the current content of a quote draft
type DraftResponse struct {
	Items []quote.DraftLineItem `json:"items"`
}
