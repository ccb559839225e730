package telemetry_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
)

func newTestQuoteMetrics(t *testing.T) (*telemetry.QuoteMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewQuoteMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewQuoteMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewQuoteMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestQuoteMetrics_RecordValidation(t *testing.T) {
	m, reader := newTestQuoteMetrics(t)

	item, err := quote.DecodeLineItem(json.RawMessage(`{"productId":1,"variantId":2,"quantity":1}`))
	require.NoError(t, err)

	classified := quote.NewClassifiedProducts()
	classified.Add(quote.Classify(0, item, quote.ValidationResponse{ResponseType: quote.ResponseSuccess}, nil))
	classified.Add(quote.Classify(1, item, quote.ValidationResponse{ResponseType: quote.ResponseError}, nil))

	m.RecordValidation(context.Background(), classified, 120*time.Millisecond)

	assert.Equal(t, int64(2), collectSum(t, reader, "b2b_quote_validated_items_total"))
}

func TestQuoteMetrics_DraftAndNotFound(t *testing.T) {
	m, reader := newTestQuoteMetrics(t)
	ctx := context.Background()

	m.RecordDraftAddition(ctx, quote.OutcomeMerged)
	m.RecordDraftAddition(ctx, quote.OutcomeAppended)
	m.RecordNotFoundSKUs(ctx, 3)
	m.RecordNotFoundSKUs(ctx, 0)

	assert.Equal(t, int64(2), collectSum(t, reader, "b2b_quote_draft_additions_total"))
	assert.Equal(t, int64(3), collectSum(t, reader, "b2b_quote_not_found_skus_total"))
}
