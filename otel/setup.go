package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InstrumentationName names the tracer and meter.
const InstrumentationName = "github.com/petal-labs/addonvet"

// Config selects where telemetry goes.
type Config struct {
	// Endpoint is an OTLP/HTTP host:port. Empty disables trace export.
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Telemetry owns the SDK providers for one process.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
}

// Setup builds the providers. Spans are exported over OTLP/HTTP when an
// endpoint is configured; metrics are held in memory and read back with
// Collect.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "addonvet"
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel: create trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	reader := sdkmetric.NewManualReader()
	return &Telemetry{
		tracerProvider: sdktrace.NewTracerProvider(tpOpts...),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)),
		reader:         reader,
	}, nil
}

// Tracer returns the addonvet tracer.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracerProvider.Tracer(InstrumentationName)
}

// Meter returns the addonvet meter.
func (t *Telemetry) Meter() metric.Meter {
	return t.meterProvider.Meter(InstrumentationName)
}

// Collect reads the current metric values.
func (t *Telemetry) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.reader.Collect(ctx, &rm)
	return rm, err
}

// LogSummary logs the submission counters by outcome at info level.
func (t *Telemetry) LogSummary(ctx context.Context, logger *zap.Logger) error {
	rm, err := t.Collect(ctx)
	if err != nil {
		return err
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				logger.Info("telemetry",
					zap.String("metric", m.Name),
					zap.String("outcome", outcome.AsString()),
					zap.Int64("value", dp.Value),
				)
			}
		}
	}
	return nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
	)
}
