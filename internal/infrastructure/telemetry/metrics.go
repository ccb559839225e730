package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// ErrMeterNil is returned when metrics are created without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// MeterProvider wraps the SDK MeterProvider with lifecycle management
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider exports metrics periodically over OTLP/gRPC. When telemetry
// is disabled Meter falls back to the global no-op provider.
func NewMeterProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	// Set default export interval if not specified
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	// Create OTLP gRPC exporter for metrics
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	// Create resource with service information
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	// Create MeterProvider with periodic reader
	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	// Set global meter provider
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized", zap.Duration("export_interval", interval))
	return mp, nil
}

// Meter returns a named meter
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.provider.Meter(name)
}

// Shutdown flushes pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	// Create a timeout context for shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// QuoteMetrics records quote validation and draft activity
type QuoteMetrics struct {
	validatedItems metric.Int64Counter
	batchDuration  metric.Float64Histogram
	draftMerges    metric.Int64Counter
	notFoundSKUs   metric.Int64Counter
}

// NewQuoteMetrics registers the quote instruments on meter
func NewQuoteMetrics(meter metric.Meter) (*QuoteMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var (
		m   QuoteMetrics
		err error
	)
	if m.validatedItems, err = meter.Int64Counter(
		"b2b_quote_validated_items_total",
		metric.WithDescription("Line items classified by the validation pipeline"),
		metric.WithUnit("{items}"),
	); err != nil {
		return nil, err
	}
	if m.batchDuration, err = meter.Float64Histogram(
		"b2b_quote_validation_duration_seconds",
		metric.WithDescription("Wall time of a validation batch"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	// Draft instruments
	if m.draftMerges, err = meter.Int64Counter(
		"b2b_quote_draft_additions_total",
		metric.WithDescription("Lines added to quote drafts by outcome"),
		metric.WithUnit("{lines}"),
	); err != nil {
		return nil, err
	}
	if m.notFoundSKUs, err = meter.Int64Counter(
		"b2b_quote_not_found_skus_total",
		metric.WithDescription("Requested SKUs missing from the catalog"),
		metric.WithUnit("{skus}"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordValidation counts every classified item by status and failure kind
func (m *QuoteMetrics) RecordValidation(ctx context.Context, classified quote.ClassifiedProducts, elapsed time.Duration) {
	for _, p := range classified.InOrder() {
		attrs := []attribute.KeyValue{attribute.String("status", string(p.Status))}
		if p.Failure != nil {
			attrs = append(attrs, attribute.String("failure", string(p.Failure.Kind)))
		}
		m.validatedItems.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.batchDuration.Record(ctx, elapsed.Seconds())
}

// RecordDraftAddition counts one draft line addition
func (m *QuoteMetrics) RecordDraftAddition(ctx context.Context, outcome quote.MergeOutcome) {
	m.draftMerges.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

// RecordNotFoundSKUs counts SKUs the catalog did not return
func (m *QuoteMetrics) RecordNotFoundSKUs(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.notFoundSKUs.Add(ctx, int64(n))
}
