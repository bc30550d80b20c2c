package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/stream"
)

// Unhandled error policy names accepted in Streams.UnhandledErrors.
const (
	PolicyFailLoop = "fail-loop"
	PolicyLogOnly  = "log-only"
)

// Config represents the complete application configuration
type Config struct {
	Version string        `json:"version,omitempty"` // Semantic version of the config file
	Loop    LoopConfig    `json:"loop"`
	Streams StreamsConfig `json:"streams"`
	Server  ServerConfig  `json:"server"`
	Metrics MetricsConfig `json:"metrics"`
	NATS    NATSConfig    `json:"nats"`
}

// LoopConfig controls the event loop.
type LoopConfig struct {
	ShutdownTimeout Duration `json:"shutdown_timeout"` // Grace period after a signal before the loop is stopped
}

// StreamsConfig holds defaults applied to every stream.
type StreamsConfig struct {
	HighWaterMark   int    `json:"high_water_mark"`
	UnhandledErrors string `json:"unhandled_errors"` // fail-loop or log-only
}

// ServerConfig configures the TCP server.
type ServerConfig struct {
	Listen      string   `json:"listen"`
	IdleTimeout Duration `json:"idle_timeout,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int    `json:"port"`
	Path string `json:"path"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string `json:"urls,omitempty"`
	Name          string   `json:"name,omitempty"`
	MaxReconnects int      `json:"max_reconnects,omitempty"`
	ReconnectWait Duration `json:"reconnect_wait,omitempty"`
	Timeout       Duration `json:"timeout,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{ShutdownTimeout: Duration(5 * time.Second)},
		Streams: StreamsConfig{
			HighWaterMark:   stream.DefaultHighWaterMark,
			UnhandledErrors: PolicyFailLoop,
		},
		Server:  ServerConfig{Listen: ":7000"},
		Metrics: MetricsConfig{Port: 9090, Path: "/metrics"},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "streamkit",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
			Timeout:       Duration(5 * time.Second),
		},
	}
}

// Validate checks if the config is valid. Failures match
// errors.ErrInvalidConfig and are classified fatal.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Config", "Validate", "validate config")
	}
	return nil
}

func (c *Config) validate() error {
	if c.Version != "" {
		if _, _, _, err := parseSemVer(c.Version); err != nil {
			return fmt.Errorf("version: %w", err)
		}
	}

	if c.Loop.ShutdownTimeout < 0 {
		return stderrors.New("loop.shutdown_timeout cannot be negative")
	}

	if c.Streams.HighWaterMark < 1 || c.Streams.HighWaterMark > stream.MaxHighWaterMark {
		return fmt.Errorf("streams.high_water_mark must be between 1 and %d, got %d",
			stream.MaxHighWaterMark, c.Streams.HighWaterMark)
	}
	c.Streams.UnhandledErrors = strings.ToLower(c.Streams.UnhandledErrors)
	if _, err := parsePolicy(c.Streams.UnhandledErrors); err != nil {
		return err
	}

	if c.Server.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			return fmt.Errorf("server.listen %q: %w", c.Server.Listen, err)
		}
	}
	if c.Server.IdleTimeout < 0 {
		return stderrors.New("server.idle_timeout cannot be negative")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	if c.Metrics.Port > 0 && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
	}

	for _, url := range c.NATS.URLs {
		if !strings.HasPrefix(url, "nats://") && !strings.HasPrefix(url, "tls://") {
			return fmt.Errorf("nats.urls: unsupported scheme in %q", url)
		}
	}
	return nil
}

func parsePolicy(name string) (stream.UnhandledErrorPolicy, error) {
	switch name {
	case PolicyFailLoop, "":
		return stream.FailLoop, nil
	case PolicyLogOnly:
		return stream.LogOnly, nil
	default:
		return stream.FailLoop, fmt.Errorf("streams.unhandled_errors must be %q or %q, got %q",
			PolicyFailLoop, PolicyLogOnly, name)
	}
}

// StreamOptions turns the stream defaults into stream options.
func (s StreamsConfig) StreamOptions() []stream.Option {
	var opts []stream.Option
	if s.HighWaterMark > 0 {
		opts = append(opts, stream.WithHighWaterMark(s.HighWaterMark))
	}
	if policy, err := parsePolicy(s.UnhandledErrors); err == nil {
		opts = append(opts, stream.WithUnhandledErrorPolicy(policy))
	}
	return opts
}

// Address returns the metrics listen address, or "" when disabled.
func (m MetricsConfig) Address() string {
	if m.Port <= 0 {
		return ""
	}
	return ":" + strconv.Itoa(m.Port)
}

// URL joins the configured NATS URLs the way nats.Connect expects them.
func (n NATSConfig) URL() string {
	return strings.Join(n.URLs, ",")
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return stderrors.New("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg.Clone()
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}
	clone := *c
	clone.NATS.URLs = append([]string(nil), c.NATS.URLs...)
	return &clone
}

// SaveToFile saves the configuration as indented JSON
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Duration is a time.Duration that reads "5s", "14d" or nanoseconds and
// writes the string form.
type Duration time.Duration

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := parseDurationWithDays(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(val)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// CompareVersions compares two semver version strings
// Returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//	error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	major1, minor1, patch1, err := parseSemVer(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v1, err)
	}
	major2, minor2, patch2, err := parseSemVer(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v2, err)
	}

	for _, pair := range [][2]int{{major1, major2}, {minor1, minor2}, {patch1, patch2}} {
		switch {
		case pair[0] > pair[1]:
			return 1, nil
		case pair[0] < pair[1]:
			return -1, nil
		}
	}
	return 0, nil
}

// parseSemVer parses a semantic version string (e.g., "1.2.3")
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, stderrors.New("version cannot be empty")
	}
	version = strings.TrimPrefix(version, "v")

	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got '%s'", version)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid version component '%s'", part)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
