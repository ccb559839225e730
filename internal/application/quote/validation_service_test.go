package quoteapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
)

func flatItem(productID, variantID int64) string {
	return fmt.Sprintf(`{"productId":%d,"variantId":%d,"quantity":1}`, productID, variantID)
}

func TestValidationService_ValidateProducts(t *testing.T) {
	t.Run("Each product lands in one bucket with its payload", func(t *testing.T) {
		validator := new(MockProductValidator)
		validator.On("ValidateProduct", mock.Anything, productID(1)).
			Return(quote.ValidationResponse{ResponseType: quote.ResponseSuccess}, nil)
		validator.On("ValidateProduct", mock.Anything, productID(2)).
			Return(quote.ValidationResponse{ResponseType: quote.ResponseWarning, Message: "Only 3 left"}, nil)
		validator.On("ValidateProduct", mock.Anything, productID(3)).
			Return(quote.ValidationResponse{}, errors.New("connection reset"))

		metrics := &recordingMetrics{}
		svc := NewValidationService(validator, zap.NewNop(), WithValidationMetrics(metrics))
		items := decodeItems(t, flatItem(1, 11), flatItem(2, 22), flatItem(3, 33))

		got, err := svc.ValidateProducts(context.Background(), items)

		require.NoError(t, err)
		require.Len(t, got.Success, 1)
		require.Len(t, got.Warning, 1)
		require.Len(t, got.Error, 1)

		assert.Equal(t, 0, got.Success[0].Index)
		assert.Equal(t, 1, got.Warning[0].Index)
		assert.Equal(t, "Only 3 left", got.Warning[0].Message)
		assert.Equal(t, 2, got.Error[0].Index)
		assert.Equal(t, quote.FailureNetwork, got.Error[0].Failure.Kind)
		assert.JSONEq(t, flatItem(3, 33), string(got.Error[0].Product.Payload()))

		require.Len(t, metrics.validations, 1)
		assert.Equal(t, 3, metrics.validations[0].Len())
		validator.AssertExpectations(t)
	})

	t.Run("Remote ERROR is a validation failure", func(t *testing.T) {
		validator := new(MockProductValidator)
		validator.On("ValidateProduct", mock.Anything, productID(1)).
			Return(quote.ValidationResponse{ResponseType: quote.ResponseError, Message: "Product is disabled"}, nil)

		svc := NewValidationService(validator, nil)
		got, err := svc.ValidateProducts(context.Background(), decodeItems(t, flatItem(1, 11)))

		require.NoError(t, err)
		require.Len(t, got.Error, 1)
		assert.Equal(t, quote.FailureValidation, got.Error[0].Failure.Kind)
		assert.Equal(t, "Product is disabled", got.Error[0].Message)
	})

	t.Run("Unresolved variant is rejected without a call", func(t *testing.T) {
		validator := new(MockProductValidator)
		validator.On("ValidateProduct", mock.Anything, productID(2)).
			Return(quote.ValidationResponse{ResponseType: quote.ResponseSuccess}, nil)

		svc := NewValidationService(validator, zap.NewNop())
		items := decodeItems(t, `{"productId":1,"quantity":1}`, flatItem(2, 22))
		got, err := svc.ValidateProducts(context.Background(), items)

		require.NoError(t, err)
		require.Len(t, got.Error, 1)
		assert.Equal(t, 0, got.Error[0].Index)
		assert.Equal(t, quote.ErrVariantUnresolved.Error(), got.Error[0].Message)
		require.Len(t, got.Success, 1)
		assert.Equal(t, 1, got.Success[0].Index)
		validator.AssertNumberOfCalls(t, "ValidateProduct", 1)
	})

	t.Run("Invalid option id is rejected without a call", func(t *testing.T) {
		validator := new(MockProductValidator)
		svc := NewValidationService(validator, zap.NewNop())
		items := decodeItems(t, `{"productId":1,"variantId":2,"quantity":1,"productOptions":[{"optionId":"color","optionValue":"red"}]}`)

		got, err := svc.ValidateProducts(context.Background(), items)

		require.NoError(t, err)
		require.Len(t, got.Error, 1)
		assert.Contains(t, got.Error[0].Message, "invalid option id")
		validator.AssertNotCalled(t, "ValidateProduct", mock.Anything, mock.Anything)
	})

	t.Run("Nil item aborts the batch", func(t *testing.T) {
		validator := new(MockProductValidator)
		svc := NewValidationService(validator, zap.NewNop())
		items := append(decodeItems(t, flatItem(1, 11)), nil)

		_, err := svc.ValidateProducts(context.Background(), items)

		var shapeErr *quote.ShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.ErrorIs(t, err, shared.ErrUnsupportedShape)
		assert.Contains(t, err.Error(), "item 1")
		validator.AssertNotCalled(t, "ValidateProduct", mock.Anything, mock.Anything)
	})

	t.Run("Empty input yields empty buckets", func(t *testing.T) {
		svc := NewValidationService(new(MockProductValidator), zap.NewNop())
		got, err := svc.ValidateProducts(context.Background(), nil)

		require.NoError(t, err)
		assert.NotNil(t, got.Success)
		assert.NotNil(t, got.Warning)
		assert.NotNil(t, got.Error)
		assert.Zero(t, got.Len())
	})
}

func TestValidationService_ValidateBatch(t *testing.T) {
	t.Run("Results align with requests when calls finish out of order", func(t *testing.T) {
		const n = 5
		validator := validatorFunc(func(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error) {
			// earlier requests finish last
			time.Sleep(time.Duration(n-req.ProductID) * 10 * time.Millisecond)
			return quote.ValidationResponse{
				ResponseType: quote.ResponseSuccess,
				Message:      strconv.FormatInt(req.ProductID, 10),
			}, nil
		})
		svc := NewValidationService(validator, zap.NewNop())

		reqs := make([]quote.ValidationRequest, n)
		for i := range reqs {
			reqs[i] = quote.ValidationRequest{ProductID: int64(i), VariantID: 1, Quantity: 1}
		}
		settled := svc.ValidateBatch(context.Background(), reqs)

		require.Len(t, settled, n)
		for i, s := range settled {
			require.NoError(t, s.Err)
			assert.Equal(t, strconv.Itoa(i), s.Response.Message)
		}
	})

	t.Run("One failure does not cancel the others", func(t *testing.T) {
		validator := validatorFunc(func(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error) {
			if req.ProductID == 0 {
				return quote.ValidationResponse{}, errors.New("timeout")
			}
			time.Sleep(20 * time.Millisecond)
			if ctx.Err() != nil {
				return quote.ValidationResponse{}, ctx.Err()
			}
			return quote.ValidationResponse{ResponseType: quote.ResponseSuccess}, nil
		})
		svc := NewValidationService(validator, zap.NewNop())

		settled := svc.ValidateBatch(context.Background(), []quote.ValidationRequest{
			{ProductID: 0}, {ProductID: 1}, {ProductID: 2},
		})

		assert.Error(t, settled[0].Err)
		assert.NoError(t, settled[1].Err)
		assert.NoError(t, settled[2].Err)
	})

	t.Run("Concurrency cap is respected", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		validator := validatorFunc(func(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return quote.ValidationResponse{ResponseType: quote.ResponseSuccess}, nil
		})
		svc := NewValidationService(validator, zap.NewNop(), WithMaxConcurrency(2))

		settled := svc.ValidateBatch(context.Background(), make([]quote.ValidationRequest, 8))

		assert.Len(t, settled, 8)
		assert.LessOrEqual(t, peak.Load(), int32(2))
		assert.Positive(t, peak.Load())
	})

	t.Run("Empty batch makes no calls", func(t *testing.T) {
		validator := new(MockProductValidator)
		svc := NewValidationService(validator, zap.NewNop())

		assert.Empty(t, svc.ValidateBatch(context.Background(), nil))
		validator.AssertNotCalled(t, "ValidateProduct", mock.Anything, mock.Anything)
	})
}

func TestValidationService_ValidateRaw(t *testing.T) {
	validator := new(MockProductValidator)
	validator.On("ValidateProduct", mock.Anything, mock.Anything).
		Return(quote.ValidationResponse{ResponseType: quote.ResponseSuccess}, nil)
	svc := NewValidationService(validator, zap.NewNop())

	t.Run("All three shapes are accepted", func(t *testing.T) {
		raws := []json.RawMessage{
			json.RawMessage(`{"node":{"productId":10,"quantity":2,"productsSearch":{"variantId":20,"newSelectOptionList":[{"optionId":"attribute[1]","optionValue":"5"}]}}}`),
			json.RawMessage(`{"productId":10,"quantity":2,"productsSearch":{"variantId":20,"selectedOptions":[{"optionId":1,"optionValue":"5"}]}}`),
			json.RawMessage(`{"productId":10,"variantId":20,"quantity":2,"productOptions":[{"optionId":"1","optionValue":5}]}`),
		}
		got, err := svc.ValidateRaw(context.Background(), raws)

		require.NoError(t, err)
		assert.Len(t, got.Success, 3)
		validator.AssertCalled(t, "ValidateProduct", mock.Anything, quote.ValidationRequest{
			ProductID:      10,
			VariantID:      20,
			Quantity:       2,
			ProductOptions: []quote.Option{{OptionID: 1, OptionValue: "5"}},
		})
	})

	t.Run("Unsupported shape aborts", func(t *testing.T) {
		_, err := svc.ValidateRaw(context.Background(), []json.RawMessage{json.RawMessage(`{"sku":"A1"}`)})
		assert.ErrorIs(t, err, shared.ErrUnsupportedShape)
	})
}
