// Standalone mock training backend for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/pulsefeed watch -c example/config.yaml
//	go run ./cmd/pulsefeed control start-metrics -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/pulsefeed/example/mockbackend"
)

func main() {
	fmt.Println("Mock training backend starting on :8000")
	fmt.Println("Metrics stay silent until POST /metrics/start")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	backend := mockbackend.New(time.Second, slog.Default())
	if err := http.ListenAndServe(":8000", backend.Handler()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
