package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m := newMetrics(provider.Meter(InstrumentationName))
	ctx := context.Background()

	m.ChainInvocationsTotal.Add(ctx, 2)
	m.ChainInvocationErrorsTotal.Add(ctx, 1)
	m.ChainInvocationDuration.Record(ctx, 12.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]metricdata.Metrics{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		got[metric.Name] = metric
	}

	invocations, ok := got["genai.chain.invocations.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.EqualValues(t, 2, invocations.DataPoints[0].Value)

	errs, ok := got["genai.chain.invocation.errors.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.EqualValues(t, 1, errs.DataPoints[0].Value)

	duration, ok := got["genai.chain.invocation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.EqualValues(t, 1, duration.DataPoints[0].Count)
}

func TestGetMetricsIsSingleton(t *testing.T) {
	assert.Same(t, GetMetrics(), GetMetrics())
}
