// Package main is the entry point for the pulsefeed CLI.
//
// pulsefeed can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pulsefeed watch -c config.yaml                 # Keep the streams connected and relay them
//	pulsefeed validate -c config.yaml              # Validate configuration
//	pulsefeed control start-workout -c config.yaml # Drive the backend
//	pulsefeed version                              # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulsefeed",
	Short: "A live client for a training-metrics backend",
	Long: `pulsefeed keeps the metrics, devices and workout event streams of a
training backend connected, reconnecting whenever a stream goes quiet or
fails, and relays the combined state over HTTP.

Quick start:
  1. Create a config file (pulsefeed.yaml)
  2. Run: pulsefeed watch -c pulsefeed.yaml
  3. Open http://localhost:8080/api/state

Example config:
  base_url: http://localhost:8000
  port: 8080
  heartbeat: 5s
  reconnect_delay: 2s`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pulsefeed binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulsefeed %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
