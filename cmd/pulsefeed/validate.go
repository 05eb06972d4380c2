package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/config"
)

// validateCmd validates a config file without connecting.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pulsefeed configuration file without connecting to the backend.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pulsefeed validate -c config.yaml
  pulsefeed validate --config /etc/pulsefeed/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ep, err := config.BuildEndpoints(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	relay := "disabled"
	if cfg.RelayEnabled() {
		relay = fmt.Sprintf("port %d", cfg.Port)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Base URL:        %s\n", ep.BaseURL())
	fmt.Printf("  Heartbeat:       %s\n", cfg.Heartbeat.Duration())
	fmt.Printf("  Reconnect delay: %s\n", cfg.ReconnectDelay.Duration())
	fmt.Printf("  Relay:           %s\n", relay)
	fmt.Printf("  Streams:\n")
	for _, r := range []pulsefeed.Route{pulsefeed.RouteMetricsStream, pulsefeed.RouteDevicesStream, pulsefeed.RouteWorkoutStream} {
		fmt.Printf("    %-15s %s\n", r, ep.URL(r))
	}

	return nil
}
