package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	MetricsPort     int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool

	Command string
	Args    []string

	usage func()
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("STREAMKIT_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: STREAMKIT_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("STREAMKIT_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: STREAMKIT_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("STREAMKIT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: STREAMKIT_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("STREAMKIT_LOG_FORMAT", "text"),
		"Log format: json, text (env: STREAMKIT_LOG_FORMAT)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("STREAMKIT_DEBUG", false),
		"Enable debug logging (env: STREAMKIT_DEBUG)")

	fs.IntVar(&cfg.MetricsPort, "metrics-port", -1,
		"Prometheus port, 0 to disable; overrides the config file")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("STREAMKIT_SHUTDOWN_TIMEOUT", 0),
		"Graceful shutdown timeout; overrides the config file (env: STREAMKIT_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs) }
	cfg.usage = fs.Usage

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Command = rest[0]
		cfg.Args = rest[1:]
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	if cfg.Validate {
		return nil
	}
	if cfg.Command == "" {
		return fmt.Errorf("missing command")
	}
	if _, ok := commands[cfg.Command]; !ok {
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - stream engine toolkit

Usage: %s [options] <command> [command options] [args]

Commands:
  echo      TCP echo server
  wsecho    WebSocket echo server
  cat       Copy files to standard output
  resp      Send one command to a Redis server and print the reply
  pub       Publish messages to a NATS subject
  sub       Print messages received on a NATS subject

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Echo server with debug logging
  %s --log-level=debug echo --listen :7000

  # Concatenate files
  %s cat a.txt b.txt > both.txt

  # Ask Redis for a key
  %s resp --addr localhost:6379 GET greeting

  # Validate configuration only
  %s --config streamkit.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
