package observability

import (
	"context"
	"errors"
	"testing"

	"surveyapp/internal/config"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogWithContextAddsTraceInfo(t *testing.T) {
	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("test-tracer")

	core, observedLogs := observer.New(zap.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	logger.Info(ctx, "survey created", map[string]interface{}{"survey_id": 4})

	entries := observedLogs.All()
	assert.Equal(t, 1, len(entries), "Expected 1 log entry")

	fields := entries[0].ContextMap()
	assert.Equal(t, "survey created", entries[0].Message)
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.EqualValues(t, 4, fields["survey_id"])
}

func TestLogWithContextNoSpan(t *testing.T) {
	core, observedLogs := observer.New(zap.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Info(context.Background(), "test message", nil)

	entries := observedLogs.All()
	assert.Equal(t, 1, len(entries), "Expected 1 log entry")

	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}

func TestLoggerErrorMergesFields(t *testing.T) {
	core, observedLogs := observer.New(zap.DebugLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Error(context.Background(), "failed to delete old survey image", errors.New("permission denied"),
		map[string]interface{}{"image": "images/a.png"},
		map[string]interface{}{"survey_id": 9})

	entries := observedLogs.All()
	assert.Equal(t, 1, len(entries))
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "permission denied", fields["error"])
	assert.Equal(t, "images/a.png", fields["image"])
	assert.EqualValues(t, 9, fields["survey_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger_DisabledIsNop(t *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))

	assert.NotNil(t, NewLogger(nil))
}
