package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/visiona/argus/internal/config"
	"github.com/visiona/argus/internal/device"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (empty uses built-in defaults)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup structured logger
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	slog.Info("starting argus device",
		"device_id", cfg.Device.ID,
		"config", *configPath,
		"debug", *debug,
	)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	dev, err := device.New(cfg)
	if err != nil {
		slog.Error("failed to create device", "error", err)
		os.Exit(1)
	}

	// Start health HTTP server (non-blocking)
	if cfg.Health.Enabled {
		if err := dev.StartHealthServer(); err != nil {
			slog.Error("failed to start health server", "error", err)
			os.Exit(1)
		}
	}

	// Run device in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- dev.Run(ctx) // Always send, even if nil
	}()

	// Wait for shutdown signal or error
	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
		runErr = <-errChan
	case runErr = <-errChan:
		if runErr != nil {
			slog.Error("device failed", "error", runErr)
		} else {
			slog.Info("device stopped (via control command)")
		}
	}

	// Graceful shutdown
	shutdownTimeout := dev.ShutdownTimeout()
	slog.Info("shutting down gracefully", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := dev.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	if runErr != nil {
		os.Exit(1)
	}

	slog.Info("argus device stopped successfully")
}

// loadConfig reads the YAML file when a path is given, or validates the
// built-in defaults for a zero-config run
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}
