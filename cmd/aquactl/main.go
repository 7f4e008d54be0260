// Command aquactl drives powered-down/up control of aquarium A/V
// equipment: projectors, video cubes, and exposition PCs.
//
// It loads a device/group/schedule configuration, then runs the Device
// Manager, Scheduler, and Monitor until asked to stop.
//
// Usage:
//
//	aquactl [flags]
//
// Flags:
//
//	-config string           Path to the configuration document (required)
//	-log-level string        Log level: debug, info, warn, error (default "info")
//	-max-concurrency int     Override the configured semaphore capacity (0 = use config)
//
// Exit codes:
//
//	0  normal shutdown
//	2  invalid configuration
//	3  durable schedule store unreadable
//	other nonzero: unexpected fault
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aquactl/aquactl/pkg/config"
	"github.com/aquactl/aquactl/pkg/engine"
	alog "github.com/aquactl/aquactl/pkg/log"
)

const shutdownGrace = 30 * time.Second

var (
	configPath     = flag.String("config", "", "Path to the configuration document (required)")
	logLevel       = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	maxConcurrency = flag.Int("max-concurrency", 0, "Override the configured semaphore capacity (0 = use config)")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "aquactl: -config is required")
		return 2
	}

	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	logger := alog.NewSlogAdapter(slogger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aquactl: invalid configuration: %v\n", err)
		return 2
	}
	if *maxConcurrency > 0 {
		cfg.MaxConcurrency = *maxConcurrency
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aquactl: failed to start: %v\n", err)
		return startupFaultCode(err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	slogger.Info("received signal, shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := eng.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "aquactl: error during shutdown: %v\n", err)
		return 1
	}
	return 0
}

// startupFaultCode maps an engine.New failure to the CLI's exit code
// contract: a schedule-store open/migrate failure is 3, a malformed
// configuration is 2, anything else is an unexpected fault (1).
func startupFaultCode(err error) int {
	if errors.Is(err, engine.ErrScheduleStoreUnavailable) {
		return 3
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
