package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnsupportedShape, http.StatusBadRequest},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeImportTooManyRows, http.StatusRequestEntityTooLarge},
		{ErrCodeImportMissingHeader, http.StatusBadRequest},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"UNSUPPORTED_SHAPE", ErrCodeUnsupportedShape},
		{"UPSTREAM_UNAVAILABLE", ErrCodeUpstreamUnavailable},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM", "CUSTOM"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.in))
		})
	}
}

func TestEveryMappedDomainCodeHasStatus(t *testing.T) {
	for domain, api := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[api]
		assert.True(t, ok, "%s maps to %s which has no status", domain, api)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("CONCURRENCY_CONFLICT", "retry", "req-1")
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeConcurrencyConflict, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.IsZero())

	v := NewValidationErrorResponse("bad", "", []ValidationDetail{{Field: "items", Message: "This field is required"}})
	assert.Equal(t, ErrCodeValidation, v.Error.Code)
	assert.Len(t, v.Error.Details, 1)
}
