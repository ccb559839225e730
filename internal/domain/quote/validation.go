package quote

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrVariantUnresolved is returned by Normalize when no variant id can be
// resolved from a line item. Such items are rejected locally rather than sent
// to the remote validator.
var ErrVariantUnresolved = errors.New("variant could not be resolved")

// ValidationCandidate is a normalized line item awaiting remote validation
type ValidationCandidate struct {
	ProductID      int64
	VariantID      int64
	Quantity       int
	ProductOptions []Option
	// Source is the original line item the candidate was built from
	Source LineItemShape
}

// Request builds the wire request for the remote validation call
func (c ValidationCandidate) Request() ValidationRequest {
	options := make([]Option, len(c.ProductOptions))
	copy(options, c.ProductOptions)
	return ValidationRequest{
		ProductID:      c.ProductID,
		VariantID:      c.VariantID,
		Quantity:       c.Quantity,
		ProductOptions: options,
	}
}

// ValidationRequest is the payload of the remote validation call
type ValidationRequest struct {
	ProductID      int64    `json:"productId"`
	VariantID      int64    `json:"variantId"`
	Quantity       int      `json:"quantity"`
	ProductOptions []Option `json:"productOptions"`
}

// ResponseType is the outcome reported by the remote validator
type ResponseType string

const (
	ResponseSuccess ResponseType = "SUCCESS"
	ResponseWarning ResponseType = "WARNING"
	ResponseError   ResponseType = "ERROR"
)

// ValidationResponse is the remote validator's answer for one product
type ValidationResponse struct {
	ResponseType ResponseType `json:"responseType"`
	Message      string       `json:"message"`
}

// Status is the bucket a validated product falls into
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// FailureKind separates transport failures from business-rule rejections
type FailureKind string

const (
	FailureNetwork    FailureKind = "network"
	FailureValidation FailureKind = "validation"
)

// Failure describes why a product landed in the error bucket
type Failure struct {
	Kind    FailureKind `json:"type"`
	Message string      `json:"message,omitempty"`
}

// ValidatedProduct is the classified outcome for one input line item
type ValidatedProduct struct {
	Status  Status
	Message string
	Failure *Failure
	// Index is the position of the item in the original input
	Index int
	// Product is the original line item, un-normalized
	Product LineItemShape
}

type validatedProductJSON struct {
	Status  Status          `json:"status"`
	Message string          `json:"message,omitempty"`
	Error   *Failure        `json:"error,omitempty"`
	Index   int             `json:"index"`
	Product json.RawMessage `json:"product"`
}

// MarshalJSON renders the product with its original payload
func (v ValidatedProduct) MarshalJSON() ([]byte, error) {
	out := validatedProductJSON{
		Status:  v.Status,
		Message: v.Message,
		Error:   v.Failure,
		Index:   v.Index,
	}
	if v.Product != nil {
		out.Product = v.Product.Payload()
	}
	if len(out.Product) == 0 {
		out.Product = json.RawMessage("null")
	}
	return json.Marshal(out)
}

// ClassifiedProducts holds every input item in exactly one bucket
type ClassifiedProducts struct {
	Success []ValidatedProduct `json:"success"`
	Warning []ValidatedProduct `json:"warning"`
	Error   []ValidatedProduct `json:"error"`
}

// NewClassifiedProducts returns empty, non-nil buckets
func NewClassifiedProducts() ClassifiedProducts {
	return ClassifiedProducts{
		Success: []ValidatedProduct{},
		Warning: []ValidatedProduct{},
		Error:   []ValidatedProduct{},
	}
}

// Add appends a product to the bucket matching its status
func (c *ClassifiedProducts) Add(p ValidatedProduct) {
	switch p.Status {
	case StatusSuccess:
		c.Success = append(c.Success, p)
	case StatusWarning:
		c.Warning = append(c.Warning, p)
	default:
		c.Error = append(c.Error, p)
	}
}

// Len returns the number of classified items across all buckets
func (c ClassifiedProducts) Len() int {
	return len(c.Success) + len(c.Warning) + len(c.Error)
}

// InOrder returns every classified product sorted back into input order
func (c ClassifiedProducts) InOrder() []ValidatedProduct {
	out := make([]ValidatedProduct, c.Len())
	for _, bucket := range [][]ValidatedProduct{c.Success, c.Warning, c.Error} {
		for _, p := range bucket {
			if p.Index >= 0 && p.Index < len(out) {
				out[p.Index] = p
			}
		}
	}
	return out
}

// Classify maps one settled validation call to a ValidatedProduct. A non-nil
// callErr is a network failure; otherwise the remote responseType decides.
func Classify(index int, product LineItemShape, resp ValidationResponse, callErr error) ValidatedProduct {
	vp := ValidatedProduct{Index: index, Product: product}
	if callErr != nil {
		vp.Status = StatusError
		vp.Failure = &Failure{Kind: FailureNetwork, Message: callErr.Error()}
		return vp
	}
	switch ResponseType(strings.ToUpper(string(resp.ResponseType))) {
	case ResponseError:
		vp.Status = StatusError
		vp.Message = resp.Message
		vp.Failure = &Failure{Kind: FailureValidation, Message: resp.Message}
	case ResponseWarning:
		vp.Status = StatusWarning
		vp.Message = resp.Message
	default:
		vp.Status = StatusSuccess
		vp.Message = resp.Message
	}
	return vp
}

// Rejected builds an error-bucket entry for an item rejected before any
// remote call was made
func Rejected(index int, product LineItemShape, message string) ValidatedProduct {
	return ValidatedProduct{
		Status:  StatusError,
		Message: message,
		Failure: &Failure{Kind: FailureValidation, Message: message},
		Index:   index,
		Product: product,
	}
}
