package telemetry

import (
	"context"
	"testing"

	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.25,
		ServiceName:       "salesinsight",
		Insecure:          true,
		DBTraceEnabled:    true,
	})

	assert.Equal(t, Config{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.25,
		ServiceName:       "salesinsight",
		Insecure:          true,
	}, cfg)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := Config{ServiceName: "test-service", SamplingRatio: 1.0}

	tp, err := NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "test-service", tp.GetConfig().ServiceName)
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, Config{ServiceName: "test-service"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, samplerFor(tt.ratio).Description())
	}

	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased{0.5}")
}
