package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/courserate-sg/server/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func restoreGlobalProvider(t *testing.T) {
	t.Helper()
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_InvalidSampleRate(t *testing.T) {
	_, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1.5}, "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample rate")
}

func TestInitTracing_UnsupportedExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRate: 1}, "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported exporter")
}

func TestInitTracing_NoneExporter(t *testing.T) {
	restoreGlobalProvider(t)

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1}, "v1.2.3")
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "global provider should be the SDK provider")
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_StdoutExporterWritesSpans(t *testing.T) {
	restoreGlobalProvider(t)

	var out bytes.Buffer
	shutdown, err := initTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1}, "v1.2.3", &out)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "refresh-counts")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Contains(t, out.String(), "refresh-counts")
	require.Contains(t, out.String(), "courserate-api")
}

func TestSamplerFor(t *testing.T) {
	require.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	require.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	require.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}
