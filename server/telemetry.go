package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/transitopia/cyclemap/internal/telemetry"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	logglobal "go.opentelemetry.io/otel/log/global"
	logsdk "go.opentelemetry.io/otel/sdk/log"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

func setEnvIfNotSet(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		os.Setenv(key, value)
	}
}

// setupTelemetry wires exporters from the standard OTEL_* environment. Prometheus metrics are
// always served on /metrics, everything else is off unless configured.
func setupTelemetry(ctx context.Context) error {
	setEnvIfNotSet("OTEL_TRACES_EXPORTER", "none")
	setEnvIfNotSet("OTEL_LOGS_EXPORTER", "none")
	setEnvIfNotSet("OTEL_METRICS_EXPORTER", "none")

	promExporter, err := prometheus.New(prometheus.WithNamespace(telemetry.MetricsNamespace))
	if err != nil {
		return fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	metricReader, err := autoexport.NewMetricReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize metric exporter: %w", err)
	}
	otel.SetMeterProvider(metricsdk.NewMeterProvider(
		metricsdk.WithReader(promExporter),
		metricsdk.WithReader(metricReader),
	))

	spanExporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize trace exporter: %w", err)
	}
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithBatcher(spanExporter)))

	logExporter, err := autoexport.NewLogExporter(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize log exporter: %w", err)
	}
	logglobal.SetLoggerProvider(logsdk.NewLoggerProvider(logsdk.WithProcessor(logsdk.NewBatchProcessor(logExporter))))

	slog.SetDefault(slog.New(telemetry.LogHandler(slog.LevelInfo, "github.com/transitopia/cyclemap/server")))

	return nil
}
