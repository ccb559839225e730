package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel))
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		base := zap.NewExample()
		assert.Same(t, base, FromContext(WithContext(context.Background(), base)))
	})

	t.Run("falls back to nop", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("ignores wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
		assert.NotNil(t, FromContext(ctx))
	})
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx, enriched := WithRequestID(context.Background(), bufferLogger(&buf), "req-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestWithBuyer(t *testing.T) {
	ctx := WithBuyer(context.Background(), "42", "")
	assert.Equal(t, "42", GetCompanyID(ctx))
	assert.Empty(t, GetCustomerID(ctx))

	ctx = WithBuyer(ctx, "", "7")
	assert.Equal(t, "42", GetCompanyID(ctx))
	assert.Equal(t, "7", GetCustomerID(ctx))
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := bufferLogger(&buf)

	ctx, _ := WithRequestID(context.Background(), base, "req-123")
	ctx = WithBuyer(ctx, "company-9", "customer-3")
	ctx = WithContext(ctx, base)

	L(ctx).Info("validated", zap.Int("items", 2))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"company_id":"company-9"`)
	assert.Contains(t, output, `"customer_id":"customer-3"`)
	assert.Contains(t, output, `"items":2`)
	assert.NotContains(t, output, "trace_id")
}

func TestContextLogger_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "quote.validate")
	defer span.End()

	var buf bytes.Buffer
	WithLogger(ctx, bufferLogger(&buf)).Warn("slow upstream")

	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)
	assert.Contains(t, buf.String(), `"trace_id":"`+traceID+`"`)
	assert.Contains(t, buf.String(), `"span_id":"`)
}

func TestContextLogger_NilLoggerDoesNotPanic(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() {
		cl.Info("test")
		cl.With(zap.String("k", "v")).Error("still fine")
		_ = cl.Zap()
	})
}

func TestContextLogger_With(t *testing.T) {
	var buf bytes.Buffer
	cl := WithLogger(context.Background(), bufferLogger(&buf)).With(zap.String("component", "draft"))
	cl.Debug("merged")

	assert.Contains(t, buf.String(), `"component":"draft"`)
	assert.Contains(t, buf.String(), `"msg":"merged"`)
}
