package quote

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
)

// ErrDraftConflict is returned when a draft store cannot apply an update
// because the draft kept changing underneath it
var ErrDraftConflict = shared.NewDomainError("CONCURRENCY_CONFLICT", "Quote draft was modified concurrently, please retry")

// DraftLineItem is one line of the persisted quote draft
type DraftLineItem struct {
	Node DraftNode `json:"node"`
}

// DraftNode is the body of a draft line
type DraftNode struct {
	ID          string          `json:"id"`
	VariantSKU  string          `json:"variantSku"`
	ProductName string          `json:"productName,omitempty"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Quantity    int             `json:"quantity"`
	// OptionList is the JSON-encoded []Option of the line
	OptionList     string          `json:"optionList"`
	ProductID      int64           `json:"productId"`
	VariantID      int64           `json:"variantId"`
	ProductsSearch json.RawMessage `json:"productsSearch,omitempty"`
}

// Options decodes the line's option list
func (n DraftNode) Options() ([]Option, error) {
	return DecodeOptionList(n.OptionList)
}

// MergeOutcome is the observable result of adding a line to a draft
type MergeOutcome string

const (
	// OutcomeMerged means an equivalent line existed and its quantity grew
	OutcomeMerged MergeOutcome = "merged"
	// OutcomeAppended means the line was added as a new entry
	OutcomeAppended MergeOutcome = "appended"
	// OutcomeReplayed means the request was already applied and the draft is unchanged
	OutcomeReplayed MergeOutcome = "replayed"
)

// CompareOption reports whether two option lists select the same options.
// longer must be the list with more entries: each of its options must either
// be missing from shorter with an empty value, or present with the same value.
func CompareOption(longer, shorter []Option) bool {
	values := make(map[OptionID]string, len(shorter))
	for _, o := range shorter {
		values[o.OptionID] = o.OptionValue
	}
	for _, o := range longer {
		v, ok := values[o.OptionID]
		if !ok {
			if o.OptionValue != "" {
				return false
			}
			continue
		}
		if v != o.OptionValue {
			return false
		}
	}
	return true
}

// EquivalentOptions orders the two lists longest first and compares them
func EquivalentOptions(a, b []Option) bool {
	if len(a) >= len(b) {
		return CompareOption(a, b)
	}
	return CompareOption(b, a)
}

// MergeDraftLine adds qty of candidate to the draft. If a line with the same
// variant SKU and equivalent options exists its quantity is incremented in
// place; otherwise candidate is appended. The returned slice may share
// storage with items.
func MergeDraftLine(items []DraftLineItem, candidate DraftLineItem, qty int, options []Option) ([]DraftLineItem, MergeOutcome) {
	if qty < 0 {
		qty = 0
	}
	for i := range items {
		node := &items[i].Node
		if node.VariantSKU != candidate.Node.VariantSKU {
			continue
		}
		existing, err := node.Options()
		if err != nil {
			continue
		}
		if EquivalentOptions(existing, options) {
			node.Quantity += qty
			return items, OutcomeMerged
		}
	}

	line := candidate
	if line.Node.ID == "" {
		line.Node.ID = uuid.NewString()
	}
	line.Node.Quantity = qty
	line.Node.OptionList = EncodeOptionList(options)
	return append(items, line), OutcomeAppended
}

// DraftRepository persists quote drafts as whole lists keyed by draft key.
// Update must apply fn atomically with respect to other updates of the same
// key. fn receives a private copy of the stored lines that it may modify; it
// may be invoked more than once and must not have side effects.
type DraftRepository interface {
	Load(ctx context.Context, key string) ([]DraftLineItem, error)
	Update(ctx context.Context, key string, fn func(items []DraftLineItem) ([]DraftLineItem, error)) error
	Clear(ctx context.Context, key string) error
}

// CloneDraftLines returns a deep copy of items
func CloneDraftLines(items []DraftLineItem) []DraftLineItem {
	if items == nil {
		return nil
	}
	out := make([]DraftLineItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Node.ProductsSearch != nil {
			out[i].Node.ProductsSearch = append(json.RawMessage(nil), it.Node.ProductsSearch...)
		}
	}
	return out
}
