// Package pulsefeed keeps live subscriptions to a training-metrics backend
// connected and exposes each stream as observable state.
//
// The backend publishes three Server-Sent Events streams: sensor metrics,
// the connected device list, and interval workout progress. A [Session]
// supervises one of them. It declares the connection stale when no message
// arrives within the heartbeat window and reconnects after a fixed delay,
// indefinitely. Connection trouble is never returned as an error; it shows
// up as [Session.Connected] going false.
//
// # Quick Start
//
// Subscribe to the metrics stream for as long as a context lives:
//
//	ep, _ := pulsefeed.NewEndpoints("http://trainer.local:8000")
//	ms, _ := pulsefeed.NewMetricsStream(ep)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	unbind, _ := pulsefeed.Bind(ctx, ms)
//	defer unbind()
//
//	updates := ms.Metrics().Subscribe()
//	defer ms.Metrics().Unsubscribe(updates)
//	for m := range updates {
//	    if p, ok := m.Float(pulsefeed.MetricPower); ok {
//	        fmt.Println("power", p)
//	    }
//	}
//
// # Stream Adapters
//
// Each adapter embeds a [Session] and folds messages into a [Subject]:
//
//   - [MetricsStream]: merges every message into a [Metrics] map; keys are never removed
//   - [DevicesStream]: replaces the []Device list on every message
//   - [WorkoutStream]: merges the fields present in a message into a [Workout]
//
// # Feed
//
// [Feed] runs all three adapters, mirrors their state into a relay served at
// /api/state and /api/sse, and exposes session metrics at /metrics:
//
//	feed, err := pulsefeed.New(
//	    pulsefeed.WithEndpoints(ep),
//	    pulsefeed.WithPort(9090),
//	    pulsefeed.WithSessionOptions(pulsefeed.WithHeartbeat(10*time.Second)),
//	)
//
// # Architecture
//
// pulsefeed consists of several internal packages (under internal/):
//
//   - internal/sse: HTTP event-stream client and line reader
//   - internal/store: In-memory snapshot storage with pub/sub
//   - internal/server: Relay HTTP server with REST API and Server-Sent Events
//   - internal/telemetry: Prometheus collectors fed by session events
//   - internal/control: Client for the backend's start/stop and settings routes
//
// The internal packages are not part of the public API and may change
// without notice.
package pulsefeed
