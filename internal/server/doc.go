// Package server provides the relay HTTP server for pulsefeed.
//
// This package is internal to pulsefeed and handles all HTTP concerns:
//
//   - REST API: JSON endpoint at "/api/state" for the current stream snapshots
//   - Server-Sent Events: live snapshot updates at "/api/sse"
//   - Telemetry: Prometheus exposition at "/metrics" when a gatherer is given
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the pulsefeed library should not need to interact with this
// package directly. The server is started by [pulsefeed.Feed.Start] unless
// the relay is disabled.
package server
