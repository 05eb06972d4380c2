package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// watchCmd keeps the streams connected and serves the relay.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the streams connected and relay their state",
	Long: `Connect to the metrics, devices and workout streams and keep them alive.

The command will:
  - Load configuration from the specified YAML file
  - Open all three event streams, reconnecting when one goes stale or fails
  - Serve the combined state on the configured port (/api/state, /api/sse, /metrics)

Stream changes are logged at debug level. The command runs until
interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pulsefeed watch -c config.yaml
  pulsefeed watch --config /etc/pulsefeed/config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	logger.Info("config loaded",
		"base_url", cfg.BaseURL,
		"heartbeat", cfg.Heartbeat.Duration().String(),
		"reconnect_delay", cfg.ReconnectDelay.Duration().String(),
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, pulsefeed.WithUpdateCallback(func(u pulsefeed.StreamUpdate) {
		logger.Debug("stream update",
			"stream", u.Stream,
			"connected", u.Connected,
			"last_updated", u.LastUpdated,
		)
	}))

	feed, err := pulsefeed.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- feed.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("feed error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("feed error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
