package observability

import (
	"context"
	"os"

	"surveyapp/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetupObservability initializes tracing, metrics, and logging for a service.
// logLevel is the server log level ("debug", "info", ...); an empty value means info.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName, logLevel string) (result0 trace.TracerProvider, result1 *metric.MeterProvider, result2 *Logger, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	var tp trace.TracerProvider
	var mp *metric.MeterProvider
	var logger *Logger

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, nil, nil, err
	}

	logger = NewLoggerWithLevel(cfg, ParseLevel(logLevel))

	if cfg.EnableTracing {
		if cfg.UseAutoSDK {
			tp = autosdk.TracerProvider()
			otel.SetTracerProvider(tp)

			logger.Info(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		} else {
			tp, err = InitStandardTracing(cfg)
			if err != nil {
				return nil, nil, nil, err
			}
			otel.SetTracerProvider(tp)

			logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		}

		InitTracing(cfg)
		InitGlobalTracer()
	}

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		otel.SetMeterProvider(mp)
	}

	// Counters are created after the meter provider is set so they report through it
	if err := InitSurveyMetrics(); err != nil {
		logger.Warn(context.Background(), "Failed to create survey metrics", map[string]interface{}{"error": err.Error()})
	}

	return tp, mp, logger, nil
}

// ShutdownProviders flushes and stops the providers returned by SetupObservability.
// The tracer provider is only stopped when its implementation supports it.
func ShutdownProviders(ctx context.Context, tp trace.TracerProvider, mp *metric.MeterProvider, logger *Logger) {
	if s, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		if err := s.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
		}
	}
}
