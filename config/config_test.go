package config

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/stream"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, stream.DefaultHighWaterMark, cfg.Streams.HighWaterMark)
	assert.Equal(t, ":9090", cfg.Metrics.Address())
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad version", func(c *Config) { c.Version = "1.2" }, "version"},
		{"negative shutdown", func(c *Config) { c.Loop.ShutdownTimeout = -1 }, "shutdown_timeout"},
		{"zero high water mark", func(c *Config) { c.Streams.HighWaterMark = 0 }, "high_water_mark"},
		{"huge high water mark", func(c *Config) { c.Streams.HighWaterMark = stream.MaxHighWaterMark + 1 }, "high_water_mark"},
		{"unknown policy", func(c *Config) { c.Streams.UnhandledErrors = "panic" }, "unhandled_errors"},
		{"listen without port", func(c *Config) { c.Server.Listen = "localhost" }, "server.listen"},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "metrics.port"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"nats scheme", func(c *Config) { c.NATS.URLs = []string{"http://x:4222"} }, "nats.urls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestConfig_ValidateNormalizesPolicy(t *testing.T) {
	cfg := Default()
	cfg.Streams.UnhandledErrors = "LOG-ONLY"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, PolicyLogOnly, cfg.Streams.UnhandledErrors)
}

func TestStreamsConfig_StreamOptions(t *testing.T) {
	assert.Len(t, StreamsConfig{HighWaterMark: 16, UnhandledErrors: PolicyLogOnly}.StreamOptions(), 2)
	assert.Len(t, StreamsConfig{UnhandledErrors: "bogus"}.StreamOptions(), 0)
	assert.Len(t, StreamsConfig{}.StreamOptions(), 1)
}

func TestMetricsConfig_Disabled(t *testing.T) {
	assert.Equal(t, "", MetricsConfig{Port: 0}.Address())
}

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{`"250ms"`, 250 * time.Millisecond},
		{`"14d"`, 14 * 24 * time.Hour},
		{`1000000`, time.Millisecond},
		{`null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.want, d.Std())
		})
	}

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   int
	}{
		{"1.0.0", "1.0.0", 0},
		{"v1.2.0", "1.1.9", 1},
		{"1.2.3", "1.10.0", -1},
		{"2.0.0", "10.0.0", -1},
	}
	for _, tt := range tests {
		got, err := CompareVersions(tt.v1, tt.v2)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.v1, tt.v2)
	}

	_, err := CompareVersions("1.x.0", "1.0.0")
	assert.Error(t, err)
	_, err = CompareVersions("1.0.0", "")
	assert.Error(t, err)
}

func TestConfig_SaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	cfg := Default()
	cfg.Version = "1.0.0"
	cfg.Server.IdleTimeout = Duration(30 * time.Second)
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
