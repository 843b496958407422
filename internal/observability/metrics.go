package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider wraps the OpenTelemetry meter provider. Metrics are collected
// into a private Prometheus registry and written out with WriteTextfile, for
// pickup by the node_exporter textfile collector.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry
}

// InitMeterProvider initializes OpenTelemetry metrics with a Prometheus
// exporter and installs it as the global meter provider.
func InitMeterProvider(cfg Config) (*MeterProvider, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	registry := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	return &MeterProvider{
		provider: provider,
		registry: registry,
	}, nil
}

// WriteTextfile gathers current metrics and writes them atomically to path.
func (mp *MeterProvider) WriteTextfile(path string) error {
	if err := promclient.WriteToTextfile(path, mp.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %q: %w", path, err)
	}
	return nil
}

// Shutdown shuts down the meter provider
func (mp *MeterProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	shutdownCtx, cancel := shutdownContext(ctx)
	defer cancel()

	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown meter provider", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// GenerationMetrics holds metrics for code generation runs.
type GenerationMetrics struct {
	runCounter      metric.Int64Counter
	errorCounter    metric.Int64Counter
	tableCounter    metric.Int64Counter
	fieldCounter    metric.Int64Counter
	fallbackCounter metric.Int64Counter
	durationHist    metric.Float64Histogram
}

// InitGenerationMetrics initializes generation metrics against the global meter provider.
func InitGenerationMetrics() (*GenerationMetrics, error) {
	meter := otel.Meter("rowgen")

	runCounter, err := meter.Int64Counter(
		"rowgen.runs",
		metric.WithDescription("Total number of generation runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"rowgen.run.errors",
		metric.WithDescription("Total number of failed generation runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run error counter: %w", err)
	}

	tableCounter, err := meter.Int64Counter(
		"rowgen.tables.generated",
		metric.WithDescription("Number of structs generated from tables"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create table counter: %w", err)
	}

	fieldCounter, err := meter.Int64Counter(
		"rowgen.fields.generated",
		metric.WithDescription("Number of struct fields generated from columns"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create field counter: %w", err)
	}

	fallbackCounter, err := meter.Int64Counter(
		"rowgen.fields.fallback",
		metric.WithDescription("Number of columns whose source type had no mapping"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"rowgen.run.duration",
		metric.WithDescription("Duration of generation runs in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	return &GenerationMetrics{
		runCounter:      runCounter,
		errorCounter:    errorCounter,
		tableCounter:    tableCounter,
		fieldCounter:    fieldCounter,
		fallbackCounter: fallbackCounter,
		durationHist:    durationHist,
	}, nil
}

// RecordRun records one generation run. Counts are ignored for failed runs.
func (m *GenerationMetrics) RecordRun(ctx context.Context, duration time.Duration, dialect, style string, tables, fields, fallbacks int, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("dialect", dialect),
		attribute.String("style", style),
	)

	m.runCounter.Add(ctx, 1, attrs)
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), attrs)

	if !success {
		m.errorCounter.Add(ctx, 1, attrs)
		return
	}

	m.tableCounter.Add(ctx, int64(tables), attrs)
	m.fieldCounter.Add(ctx, int64(fields), attrs)
	m.fallbackCounter.Add(ctx, int64(fallbacks), attrs)
}
