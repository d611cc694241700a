package observability

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"surveyapp/internal/config"
	contextutils "surveyapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupObservability_AllEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing: true,
		EnableMetrics: true,
		EnableLogging: true,
		Protocol:      "grpc",
		Endpoint:      "localhost:4317",
		Insecure:      true,
		SamplingRate:  1.0,
	}
	tp, mp, logger, err := SetupObservability(cfg, "test-service", "debug")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NotNil(t, mp)
	require.NotNil(t, logger)
	assert.Equal(t, "test-service", cfg.ServiceName)
}

func TestSetupObservability_NoneEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{ServiceName: "test-service"}
	tp, mp, logger, err := SetupObservability(cfg, "", "info")
	require.NoError(t, err)
	require.Nil(t, tp)
	require.Nil(t, mp)
	require.NotNil(t, logger)
}

func TestSetupObservability_UseAutoSDK(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing:  true,
		UseAutoSDK:     true,
		ServiceVersion: "1.0.0",
	}
	tp, _, _, err := SetupObservability(cfg, "test-service", "")
	require.NoError(t, err)
	require.Equal(t, reflect.TypeOf(autosdk.TracerProvider()), reflect.TypeOf(tp))
}

func TestSetupObservability_StandardSDK(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing:  true,
		ServiceVersion: "1.0.0",
		Protocol:       "http",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SamplingRate:   0.5,
	}
	tp, _, _, err := SetupObservability(cfg, "test-service", "")
	require.NoError(t, err)
	_, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok, "Expected *sdktrace.TracerProvider")
}

func TestInitStandardTracing_InvalidProtocol(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		ServiceName:  "test-service",
		Protocol:     "invalid",
		Endpoint:     "localhost:4317",
		SamplingRate: 1.0,
	}
	tp, err := InitStandardTracing(cfg)
	require.Error(t, err)
	require.Nil(t, tp)
	require.Contains(t, err.Error(), "unsupported otel protocol")
}

func TestInitMetrics_InvalidProtocol(t *testing.T) {
	mp, err := InitMetrics(&config.OpenTelemetryConfig{Protocol: "carrier-pigeon"})
	require.Error(t, err)
	require.Nil(t, mp)
}

func TestTraceSurveyFunction_SpanNameAndStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	globalTracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	t.Cleanup(func() { globalTracer = nil })

	run := func() (err error) {
		_, span := TraceSurveyFunction(context.Background(), "Create", AttributeSurveyID(5), AttributeUserID(2))
		defer FinishSpan(span, &err)
		return errors.New("boom")
	}
	require.Error(t, run())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "survey.Create", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestFinishSpan_ClientErrorsKeepStatusUnset(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	globalTracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	t.Cleanup(func() { globalTracer = nil })

	run := func() (err error) {
		_, span := TraceAnswerFunction(context.Background(), "SubmitAnswers")
		defer FinishSpan(span, &err)
		return contextutils.NewUnknownQuestionError("99")
	}
	require.Error(t, run())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestSurveyCounters(_ *testing.T) {
	// counters fall back to the global no-op meter when no provider is set
	ctx := context.Background()
	RecordSurveyCreated(ctx, 1)
	RecordSurveyDeleted(ctx)
	RecordAnswersRecorded(ctx, 3, 4)
	RecordImageStored(ctx, "png")
}
