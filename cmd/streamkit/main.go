// Package main implements the streamkit command: small servers and clients
// built on the StreamKit event loop and streams.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/streamkit/config"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/socket"
	"github.com/c360/streamkit/stream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "streamkit"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	ctx      context.Context
	lp       *loop.Loop
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry

	// shutdown hooks run on the loop when a signal arrives
	shutdown []func()
	// cleanup runs after the loop returned
	cleanup []func()
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err == flag.ErrHelp {
		return nil
	}
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		cliCfg.usage()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	logger.Debug("Starting StreamKit",
		"version", Version,
		"build_time", BuildTime,
		"command", cliCfg.Command,
		"config_path", cliCfg.ConfigPath)

	registry := metric.NewMetricsRegistry()
	if addr := cfg.Metrics.Address(); addr != "" {
		server := metric.NewServer(addr, cfg.Metrics.Path, registry)
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("Metrics server started", "address", server.Address())
		defer func() { _ = server.Stop(5 * time.Second) }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		lp: loop.New(
			loop.WithLogger(logger.With("component", "loop")),
			loop.WithMetrics(registry.CoreMetrics()),
			loop.WithQueueMetrics(registry),
		),
	}
	defer func() {
		for _, fn := range a.cleanup {
			fn()
		}
	}()

	if err := commands[cliCfg.Command](a, cliCfg.Args); err != nil {
		return fmt.Errorf("%s: %w", cliCfg.Command, err)
	}

	return a.runWithSignalHandling(cfg.Loop.ShutdownTimeout.Std())
}

// initializeConfiguration loads the optional config file, applies
// environment and flag overrides, and validates the result.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.MetricsPort >= 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}
	if cliCfg.ShutdownTimeout > 0 {
		cfg.Loop.ShutdownTimeout = config.Duration(cliCfg.ShutdownTimeout)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runWithSignalHandling runs the loop until it goes idle or fails. A signal
// runs the shutdown hooks on the loop and stops it if it is still busy after
// timeout.
func (a *app) runWithSignalHandling(timeout time.Duration) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-done:
			return
		case <-a.ctx.Done():
		}
		a.logger.Info("Shutdown signal received", "timeout", timeout)
		a.lp.Enqueue(func() {
			for _, fn := range a.shutdown {
				fn()
			}
		})

		select {
		case <-done:
		case <-time.After(timeout):
			a.logger.Warn("Shutdown timeout exceeded, stopping loop")
			a.lp.Stop()
		}
	}()

	if err := a.lp.Run(context.Background()); err != nil {
		return err
	}
	stats := a.lp.Stats()
	a.logger.Debug("Loop finished", "stats", stats)
	return nil
}

func (a *app) onShutdown(fn func()) { a.shutdown = append(a.shutdown, fn) }

func (a *app) onCleanup(fn func()) { a.cleanup = append(a.cleanup, fn) }

func (a *app) streamOptions(kind string) []stream.Option {
	opts := a.cfg.Streams.StreamOptions()
	return append(opts,
		stream.WithLogger(a.logger.With("component", kind)),
		stream.WithMetrics(a.registry.CoreMetrics()),
	)
}

func (a *app) socketOptions() []socket.Option {
	return []socket.Option{
		socket.WithLogger(a.logger.With("component", "socket")),
		socket.WithMetrics(a.registry.CoreMetrics()),
		socket.WithStreamOptions(a.streamOptions("socket")...),
	}
}
