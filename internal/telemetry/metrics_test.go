package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordsIntoReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordLogin(ctx, "success")
	m.RecordLogin(ctx, "bad_password")
	m.RecordUpload(ctx, "application/pdf", 2048)
	m.RecordHTTPRequest(ctx, "GET", "/health", 200, 1.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			if md.Name == "upload_bytes_total" {
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				require.Len(t, sum.DataPoints, 1)
				assert.Equal(t, int64(2048), sum.DataPoints[0].Value)
			}
		}
	}
	assert.True(t, found["logins_total"])
	assert.True(t, found["upload_bytes_total"])
	assert.True(t, found["http_server_requests_total"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAuthFailure(context.Background(), "missing_authorization")
		m.RecordMessageSent(context.Background(), "PATIENT")
	})
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(Config{TracesSampler: "always_off"}).Description(), "AlwaysOff")
	assert.Contains(t, sampler(Config{TracesSampler: "traceidratio", SamplerRatio: 0.5}).Description(), "TraceIDRatioBased")
	assert.Contains(t, sampler(Config{}).Description(), "AlwaysOn")
}
