package observability

import (
	"context"
	"sync"

	"surveyapp/internal/config"
	contextutils "surveyapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc", "":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// surveyMetrics holds the domain counters reported by the survey services
type surveyMetrics struct {
	surveysCreated  otelmetric.Int64Counter
	surveysDeleted  otelmetric.Int64Counter
	answerSessions  otelmetric.Int64Counter
	questionAnswers otelmetric.Int64Counter
	imagesStored    otelmetric.Int64Counter
}

var (
	metricsMu      sync.Mutex
	currentMetrics *surveyMetrics
)

// InitSurveyMetrics (re)creates the survey counters from the global meter provider
func InitSurveyMetrics() error {
	meter := otel.Meter(tracerName)

	m := &surveyMetrics{}
	var err error
	if m.surveysCreated, err = meter.Int64Counter("survey.created", otelmetric.WithDescription("Surveys created")); err != nil {
		return err
	}
	if m.surveysDeleted, err = meter.Int64Counter("survey.deleted", otelmetric.WithDescription("Surveys deleted")); err != nil {
		return err
	}
	if m.answerSessions, err = meter.Int64Counter("survey.answer_sessions", otelmetric.WithDescription("Answer submissions recorded")); err != nil {
		return err
	}
	if m.questionAnswers, err = meter.Int64Counter("survey.question_answers", otelmetric.WithDescription("Individual question answers recorded")); err != nil {
		return err
	}
	if m.imagesStored, err = meter.Int64Counter("survey.images_stored", otelmetric.WithDescription("Survey images written to storage")); err != nil {
		return err
	}

	metricsMu.Lock()
	currentMetrics = m
	metricsMu.Unlock()
	return nil
}

func getSurveyMetrics() *surveyMetrics {
	metricsMu.Lock()
	m := currentMetrics
	metricsMu.Unlock()
	if m != nil {
		return m
	}
	if err := InitSurveyMetrics(); err != nil {
		return nil
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return currentMetrics
}

// RecordSurveyCreated counts a committed survey creation
func RecordSurveyCreated(ctx context.Context, userID int) {
	if m := getSurveyMetrics(); m != nil {
		m.surveysCreated.Add(ctx, 1, otelmetric.WithAttributes(attribute.Int("user.id", userID)))
	}
}

// RecordSurveyDeleted counts a committed survey deletion
func RecordSurveyDeleted(ctx context.Context) {
	if m := getSurveyMetrics(); m != nil {
		m.surveysDeleted.Add(ctx, 1)
	}
}

// RecordAnswersRecorded counts one answer session and its question answers
func RecordAnswersRecorded(ctx context.Context, surveyID, answers int) {
	if m := getSurveyMetrics(); m != nil {
		attrs := otelmetric.WithAttributes(attribute.Int("survey.id", surveyID))
		m.answerSessions.Add(ctx, 1, attrs)
		m.questionAnswers.Add(ctx, int64(answers), attrs)
	}
}

// RecordImageStored counts an image written by the image store
func RecordImageStored(ctx context.Context, imageType string) {
	if m := getSurveyMetrics(); m != nil {
		m.imagesStored.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("image.type", imageType)))
	}
}
