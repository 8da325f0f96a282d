package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// InstrumentationName names the tracer and meter used across the module.
	InstrumentationName = "github.com/wolfeidau/genai-devkit"
)

// Metrics holds the OpenTelemetry instruments of the local chain server.
type Metrics struct {
	ChainInvocationsTotal      metric.Int64Counter
	ChainInvocationErrorsTotal metric.Int64Counter
	ChainInvocationDuration    metric.Float64Histogram
	ActiveInvocations          metric.Int64UpDownCounter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance. Call it after Init so the
// instruments bind to the configured meter provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = newMetrics(otel.GetMeterProvider().Meter(InstrumentationName))
	})
	return metrics
}

func newMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.ChainInvocationsTotal, _ = meter.Int64Counter(
		"genai.chain.invocations.total",
		metric.WithDescription("Total number of chain invocations"),
		metric.WithUnit("{invocation}"),
	)

	m.ChainInvocationErrorsTotal, _ = meter.Int64Counter(
		"genai.chain.invocation.errors.total",
		metric.WithDescription("Total number of failed chain invocations"),
		metric.WithUnit("{error}"),
	)

	m.ChainInvocationDuration, _ = meter.Float64Histogram(
		"genai.chain.invocation.duration",
		metric.WithDescription("Duration of chain invocations"),
		metric.WithUnit("ms"),
	)

	m.ActiveInvocations, _ = meter.Int64UpDownCounter(
		"genai.chain.invocations.active",
		metric.WithDescription("Number of chain invocations in flight"),
		metric.WithUnit("{invocation}"),
	)

	return m
}
