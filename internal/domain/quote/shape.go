package quote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
)

// ShapeKind names one of the accepted line-item representations
type ShapeKind string

const (
	// ShapeCartNode is a { node: {...} } wrapper as stored on quote drafts
	ShapeCartNode ShapeKind = "cart_node"
	// ShapeSearch is a flat item with its own nested productsSearch
	ShapeSearch ShapeKind = "search"
	// ShapeFlat is a fully flat item with top-level options
	ShapeFlat ShapeKind = "flat"
)

// LineItemShape is the closed set of line-item representations the pipeline
// accepts: CartNodeShape, SearchShape and FlatShape.
type LineItemShape interface {
	Kind() ShapeKind
	// Payload returns the original, un-normalized representation
	Payload() json.RawMessage
	normalize() (ValidationCandidate, error)
}

// ShapeError is returned when input matches none of the accepted shapes. It
// signals a caller bug and aborts the whole batch.
type ShapeError struct {
	Reason  string
	Payload string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unsupported line item shape: %s", e.Reason)
}

// Unwrap exposes the domain error so handlers can map it to a status code
func (e *ShapeError) Unwrap() error {
	return shared.ErrUnsupportedShape
}

func newShapeError(reason string, payload []byte) *ShapeError {
	const maxPayload = 256
	p := string(payload)
	if len(p) > maxPayload {
		p = p[:maxPayload] + "..."
	}
	return &ShapeError{Reason: reason, Payload: p}
}

// ProductsSearch is the nested productsSearch block shared by the shapes
type ProductsSearch struct {
	VariantID           ID          `json:"variantId,omitempty"`
	NewSelectOptionList []RawOption `json:"newSelectOptionList,omitempty"`
	SelectedOptions     []RawOption `json:"selectedOptions,omitempty"`
	OptionSelections    []RawOption `json:"optionSelections,omitempty"`
}

// CartNodeShape is shape (a): { node: { productId, quantity, productsSearch } }
type CartNodeShape struct {
	Node CartNode `json:"node"`
	raw  json.RawMessage
}

// CartNode is the body of a CartNodeShape
type CartNode struct {
	ID             string         `json:"id,omitempty"`
	VariantSKU     string         `json:"variantSku,omitempty"`
	ProductID      ID             `json:"productId"`
	VariantID      ID             `json:"variantId,omitempty"`
	Quantity       Quantity       `json:"quantity"`
	ProductsSearch ProductsSearch `json:"productsSearch"`
}

// Kind implements LineItemShape
func (s CartNodeShape) Kind() ShapeKind { return ShapeCartNode }

// Payload implements LineItemShape
func (s CartNodeShape) Payload() json.RawMessage { return payloadOf(s.raw, s) }

func (s CartNodeShape) normalize() (ValidationCandidate, error) {
	variantID := s.Node.ProductsSearch.VariantID
	if variantID == 0 {
		variantID = s.Node.VariantID
	}
	return buildCandidate(s, s.Node.ProductID, variantID, s.Node.Quantity, s.Node.ProductsSearch.NewSelectOptionList)
}

// NewCartNodeShape builds a cart-node line item from typed values, as the
// bulk path does for catalog rows
func NewCartNodeShape(sku string, productID, variantID int64, qty int, options []Option) CartNodeShape {
	raw := make([]RawOption, 0, len(options))
	for _, o := range options {
		raw = append(raw, RawOption{
			OptionID:    json.RawMessage(strconv.FormatInt(int64(o.OptionID), 10)),
			OptionValue: o.OptionValue,
		})
	}
	return CartNodeShape{Node: CartNode{
		VariantSKU: sku,
		ProductID:  ID(productID),
		VariantID:  ID(variantID),
		Quantity:   Quantity(qty),
		ProductsSearch: ProductsSearch{
			VariantID:           ID(variantID),
			NewSelectOptionList: raw,
		},
	}}
}

// SearchShape is shape (b): a flat item with a top-level variantId and a nested
// productsSearch carrying selectedOptions or optionSelections
type SearchShape struct {
	ProductID      ID             `json:"productId"`
	VariantID      ID             `json:"variantId,omitempty"`
	Quantity       Quantity       `json:"quantity"`
	ProductsSearch ProductsSearch `json:"productsSearch"`
	raw            json.RawMessage
}

// Kind implements LineItemShape
func (s SearchShape) Kind() ShapeKind { return ShapeSearch }

// Payload implements LineItemShape
func (s SearchShape) Payload() json.RawMessage { return payloadOf(s.raw, s) }

func (s SearchShape) normalize() (ValidationCandidate, error) {
	options := s.ProductsSearch.SelectedOptions
	if len(options) == 0 {
		options = s.ProductsSearch.OptionSelections
	}
	variantID := s.VariantID
	if variantID == 0 {
		variantID = s.ProductsSearch.VariantID
	}
	return buildCandidate(s, s.ProductID, variantID, s.Quantity, options)
}

// FlatShape is shape (c): productOptions or optionSelections at the top level
type FlatShape struct {
	ProductID        ID          `json:"productId"`
	VariantID        ID          `json:"variantId,omitempty"`
	Quantity         Quantity    `json:"quantity"`
	ProductOptions   []RawOption `json:"productOptions,omitempty"`
	OptionSelections []RawOption `json:"optionSelections,omitempty"`
	raw              json.RawMessage
}

// Kind implements LineItemShape
func (s FlatShape) Kind() ShapeKind { return ShapeFlat }

// Payload implements LineItemShape
func (s FlatShape) Payload() json.RawMessage { return payloadOf(s.raw, s) }

func (s FlatShape) normalize() (ValidationCandidate, error) {
	options := s.ProductOptions
	if len(options) == 0 {
		options = s.OptionSelections
	}
	return buildCandidate(s, s.ProductID, s.VariantID, s.Quantity, options)
}

func payloadOf(raw json.RawMessage, v any) json.RawMessage {
	if len(raw) > 0 {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func buildCandidate(src LineItemShape, productID, variantID ID, qty Quantity, raw []RawOption) (ValidationCandidate, error) {
	candidate := ValidationCandidate{
		ProductID:      int64(productID),
		VariantID:      int64(variantID),
		Quantity:       int(qty),
		ProductOptions: make([]Option, 0, len(raw)),
		Source:         src,
	}
	for _, r := range raw {
		opt, err := r.Parse()
		if err != nil {
			return candidate, err
		}
		candidate.ProductOptions = append(candidate.ProductOptions, opt)
	}
	if candidate.VariantID == 0 {
		return candidate, ErrVariantUnresolved
	}
	return candidate, nil
}

// Normalize converts any accepted shape into a ValidationCandidate. A nil
// shape yields a ShapeError; an unparseable option id yields an
// OptionIDError and an unresolvable variant yields ErrVariantUnresolved, both
// with the partially built candidate.
func Normalize(s LineItemShape) (ValidationCandidate, error) {
	if s == nil {
		return ValidationCandidate{}, newShapeError("nil line item", nil)
	}
	return s.normalize()
}

// DecodeLineItem detects the shape of a raw JSON line item. Precedence is node,
// then productsSearch, then the flat form; anything else is a ShapeError.
func DecodeLineItem(raw json.RawMessage) (LineItemShape, error) {
	trimmed := bytes.TrimSpace(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		return nil, newShapeError("line item is not a JSON object", trimmed)
	}

	switch {
	case hasKey(fields, "node"):
		if !hasObject(fields, "node") {
			return nil, newShapeError("node is not an object", trimmed)
		}
		var s CartNodeShape
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, newShapeError("node wrapper: "+err.Error(), trimmed)
		}
		s.raw = append(json.RawMessage(nil), trimmed...)
		return s, nil
	case hasKey(fields, "productsSearch"):
		if !hasObject(fields, "productsSearch") {
			return nil, newShapeError("productsSearch is not an object", trimmed)
		}
		var s SearchShape
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, newShapeError("productsSearch item: "+err.Error(), trimmed)
		}
		s.raw = append(json.RawMessage(nil), trimmed...)
		return s, nil
	case hasKey(fields, "productId"):
		var s FlatShape
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, newShapeError("flat item: "+err.Error(), trimmed)
		}
		s.raw = append(json.RawMessage(nil), trimmed...)
		return s, nil
	default:
		return nil, newShapeError("no node, productsSearch or productId field", trimmed)
	}
}

// DecodeLineItems decodes a batch; the first ShapeError aborts the batch
func DecodeLineItems(raws []json.RawMessage) ([]LineItemShape, error) {
	items := make([]LineItemShape, 0, len(raws))
	for i, raw := range raws {
		item, err := DecodeLineItem(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func hasKey(fields map[string]json.RawMessage, key string) bool {
	v, ok := fields[key]
	return ok && string(bytes.TrimSpace(v)) != "null"
}

func hasObject(fields map[string]json.RawMessage, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

// ProductsSearchOf returns the raw productsSearch block carried by a line
// item, or nil for shapes that have none
func ProductsSearchOf(s LineItemShape) json.RawMessage {
	if s == nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.Payload(), &fields); err != nil {
		return nil
	}
	if s.Kind() == ShapeCartNode {
		var node map[string]json.RawMessage
		if err := json.Unmarshal(fields["node"], &node); err != nil {
			return nil
		}
		fields = node
	}
	if !hasObject(fields, "productsSearch") {
		return nil
	}
	return fields["productsSearch"]
}
