package tracing

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		errs   int
	}{
		{"disabled ignores everything", func(o *Options) { o.Endpoint = ""; o.SamplerRatio = 5 }, 0},
		{"grpc exporter", func(o *Options) { o.Enabled = true }, 0},
		{"missing endpoint", func(o *Options) { o.Enabled = true; o.Endpoint = "" }, 1},
		{"stdout needs no endpoint", func(o *Options) { o.Enabled = true; o.ExporterType = ExporterStdout; o.Endpoint = "" }, 0},
		{"unknown exporter", func(o *Options) { o.Enabled = true; o.ExporterType = "jaeger" }, 1},
		{"bad ratio and timeout", func(o *Options) { o.Enabled = true; o.SamplerRatio = 1.5; o.BatchTimeout = 0 }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.modify(o)
			assert.Len(t, o.Validate(), tt.errs)
		})
	}
}

func TestOptions_AddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("tracing", pflag.ContinueOnError)
	o.AddFlags(fs, "tracing.")

	require.NoError(t, fs.Parse([]string{"--tracing.enabled", "--tracing.exporter-type=otlp_http", "--tracing.sampler-ratio=0.25"}))
	assert.True(t, o.Enabled)
	assert.Equal(t, ExporterOTLPHTTP, o.ExporterType)
	assert.InDelta(t, 0.25, o.SamplerRatio, 1e-9)
}
