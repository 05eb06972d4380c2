package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/example/mockbackend"
	"github.com/jpalmerr/pulsefeed/internal/control"
)

func main() {
	// start mock backend (see mockbackend)
	backend := mockbackend.New(time.Second, slog.Default())
	go func() {
		if err := http.ListenAndServe(":8000", backend.Handler()); err != nil {
			slog.Error("mock backend error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	endpoints, err := pulsefeed.NewEndpoints("http://localhost:8000")
	if err != nil {
		slog.Error("failed to create endpoints", "error", err)
		os.Exit(1)
	}

	feed, err := pulsefeed.New(
		pulsefeed.WithEndpoints(endpoints),
		pulsefeed.WithPort(8080),
		pulsefeed.WithSessionOptions(pulsefeed.WithHeartbeat(3*time.Second)),
		pulsefeed.WithUpdateCallback(func(u pulsefeed.StreamUpdate) {
			if u.Stream == pulsefeed.StreamMetrics {
				if m, ok := u.Data.(pulsefeed.Metrics); ok {
					if power, ok := m.Float(pulsefeed.MetricPower); ok {
						fmt.Printf("  power %4.0f W\n", power)
					}
				}
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create feed", "error", err)
		os.Exit(1)
	}

	// metrics stay silent for a few seconds, so the metrics stream
	// reconnects once before the first reading arrives
	client, err := control.NewClient(endpoints)
	if err != nil {
		slog.Error("failed to create control client", "error", err)
		os.Exit(1)
	}
	time.AfterFunc(5*time.Second, func() {
		ctx := context.Background()
		if err := client.StartMetrics(ctx); err != nil {
			slog.Error("start metrics failed", "error", err)
		}
		if err := client.StartWorkout(ctx); err != nil {
			slog.Error("start workout failed", "error", err)
		}
	})

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   pulsefeed demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   State:   http://localhost:8080/api/state            ║")
	fmt.Println("  ║   Live:    http://localhost:8080/api/sse              ║")
	fmt.Println("  ║   Metrics: http://localhost:8080/metrics              ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := feed.Start(ctx); err != nil {
		slog.Error("pulsefeed error", "error", err)
		os.Exit(1)
	}
}
