package quote

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatItem(t *testing.T, raw string) LineItemShape {
	t.Helper()
	shape, err := DecodeLineItem(json.RawMessage(raw))
	require.NoError(t, err)
	return shape
}

func TestClassify(t *testing.T) {
	item := flatItem(t, `{"productId":1,"variantId":2,"quantity":1}`)

	tests := []struct {
		name        string
		resp        ValidationResponse
		callErr     error
		wantStatus  Status
		wantFailure *Failure
		wantMessage string
	}{
		{
			name:       "success",
			resp:       ValidationResponse{ResponseType: ResponseSuccess},
			wantStatus: StatusSuccess,
		},
		{
			name:        "warning keeps message",
			resp:        ValidationResponse{ResponseType: ResponseWarning, Message: "low stock"},
			wantStatus:  StatusWarning,
			wantMessage: "low stock",
		},
		{
			name:        "error is a validation failure",
			resp:        ValidationResponse{ResponseType: ResponseError, Message: "not purchasable"},
			wantStatus:  StatusError,
			wantFailure: &Failure{Kind: FailureValidation, Message: "not purchasable"},
			wantMessage: "not purchasable",
		},
		{
			name:        "lowercase response type",
			resp:        ValidationResponse{ResponseType: "warning", Message: "careful"},
			wantStatus:  StatusWarning,
			wantMessage: "careful",
		},
		{
			name:       "unknown response type is success",
			resp:       ValidationResponse{ResponseType: "INFO"},
			wantStatus: StatusSuccess,
		},
		{
			name:        "call error is a network failure",
			callErr:     errors.New("connection reset"),
			wantStatus:  StatusError,
			wantFailure: &Failure{Kind: FailureNetwork, Message: "connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(4, item, tt.resp, tt.callErr)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantFailure, got.Failure)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, 4, got.Index)
			assert.Equal(t, item, got.Product)
		})
	}
}

func TestClassifiedProducts_InOrder(t *testing.T) {
	a := flatItem(t, `{"productId":1,"variantId":1,"quantity":1}`)
	b := flatItem(t, `{"productId":2,"variantId":2,"quantity":1}`)
	c := flatItem(t, `{"productId":3,"variantId":3,"quantity":1}`)

	classified := NewClassifiedProducts()
	classified.Add(Classify(2, c, ValidationResponse{ResponseType: ResponseError}, nil))
	classified.Add(Classify(0, a, ValidationResponse{ResponseType: ResponseSuccess}, nil))
	classified.Add(Classify(1, b, ValidationResponse{ResponseType: ResponseWarning}, nil))

	require.Equal(t, 3, classified.Len())
	assert.Len(t, classified.Success, 1)
	assert.Len(t, classified.Warning, 1)
	assert.Len(t, classified.Error, 1)

	ordered := classified.InOrder()
	require.Len(t, ordered, 3)
	assert.Equal(t, a, ordered[0].Product)
	assert.Equal(t, b, ordered[1].Product)
	assert.Equal(t, c, ordered[2].Product)
}

func TestNewClassifiedProducts_MarshalsEmptyArrays(t *testing.T) {
	b, err := json.Marshal(NewClassifiedProducts())
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":[],"warning":[],"error":[]}`, string(b))
}

func TestValidatedProduct_MarshalJSON(t *testing.T) {
	raw := `{"productId":1,"variantId":2,"quantity":3,"note":"x"}`
	vp := Rejected(0, flatItem(t, raw), "variant missing")

	b, err := json.Marshal(vp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status":"error",
		"message":"variant missing",
		"error":{"type":"validation","message":"variant missing"},
		"index":0,
		"product":`+raw+`
	}`, string(b))
}
