package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestLoader_LayersMerge(t *testing.T) {
	base := writeFile(t, "base.yaml", `
version: 1.0.0
streams:
  high_water_mark: 64
  unhandled_errors: log-only
server:
  listen: ":8000"
  idle_timeout: 30s
nats:
  urls:
    - nats://one:4222
`)
	override := writeFile(t, "override.json", `{
  "server": {"listen": "127.0.0.1:9000"},
  "metrics": {"port": 0}
}`)

	l := NewLoader()
	l.lookupEnv = noEnv
	l.AddLayer(base)
	l.AddLayer(override)
	l.EnableValidation(true)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, 64, cfg.Streams.HighWaterMark)
	assert.Equal(t, PolicyLogOnly, cfg.Streams.UnhandledErrors)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.IdleTimeout.Std())
	assert.Equal(t, 0, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, []string{"nats://one:4222"}, cfg.NATS.URLs)
	assert.Equal(t, 5*time.Second, cfg.Loop.ShutdownTimeout.Std())
}

func TestLoader_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"STREAMKIT_SERVER_LISTEN":           ":7100",
		"STREAMKIT_METRICS_PORT":            "9200",
		"STREAMKIT_STREAMS_HIGH_WATER_MARK": "8",
		"STREAMKIT_NATS_URLS":               "nats://a:4222, nats://b:4222",
	}
	l := NewLoader()
	l.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.Server.Listen)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, 8, cfg.Streams.HighWaterMark)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
}

func TestLoader_EnvFromProcess(t *testing.T) {
	t.Setenv("STREAMKIT_STREAMS_UNHANDLED_ERRORS", "log-only")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, PolicyLogOnly, cfg.Streams.UnhandledErrors)
}

func TestLoader_BadEnvValue(t *testing.T) {
	l := NewLoader()
	l.lookupEnv = func(key string) (string, bool) {
		if key == "STREAMKIT_METRICS_PORT" {
			return "ninety", true
		}
		return "", false
	}
	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STREAMKIT_METRICS_PORT")

	l.lookupEnv = func(key string) (string, bool) {
		if key == "STREAMKIT_SERVER_LISTEN" {
			return ":1\x00", true
		}
		return "", false
	}
	_, err = l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null byte")
}

func TestLoader_ValidationFailure(t *testing.T) {
	path := writeFile(t, "bad.json", `{"streams": {"high_water_mark": -1}}`)
	l := NewLoader()
	l.lookupEnv = noEnv
	l.EnableValidation(true)

	_, err := l.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	l.EnableValidation(false)
	cfg, err := l.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Streams.HighWaterMark)
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader()
	l.lookupEnv = noEnv

	_, err := l.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = l.LoadFile(writeFile(t, "config.toml", "x = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")

	_, err = l.LoadFile(writeFile(t, "broken.json", `{"server": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")

	_, err = l.LoadFile(writeFile(t, "wrongtype.json", `{"server": {"listen": 5}}`))
	assert.Error(t, err)

	_, err = l.LoadFile("../../etc/streamkit.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")
}

func TestLoader_EmptyFileKeepsDefaults(t *testing.T) {
	l := NewLoader()
	l.lookupEnv = noEnv
	cfg, err := l.LoadFile(writeFile(t, "empty.yml", "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoader_DepthLimit(t *testing.T) {
	deep := strings.Repeat(`{"a":`, maxDepth+2) + "1" + strings.Repeat("}", maxDepth+2)
	l := NewLoader()
	l.lookupEnv = noEnv
	_, err := l.LoadFile(writeFile(t, "deep.json", deep))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting too deep")
}

func TestSafeWriteFile_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, safeWriteFile(path, []byte("server: {}\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Error(t, safeWriteFile(filepath.Join(t.TempDir(), "out.txt"), nil))
}
