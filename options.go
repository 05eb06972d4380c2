package pulsefeed

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// feedConfig holds mutable state during Feed construction.
type feedConfig struct {
	endpoints       *Endpoints
	port            int
	relay           bool
	logger          *slog.Logger
	registry        *prometheus.Registry
	sessionOpts     []SessionOption
	updateCallbacks []func(StreamUpdate)
}

// Option is a function that configures a [Feed] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithEndpoints], [WithPort], [WithoutRelay],
// [WithLogger], [WithRegistry], [WithSessionOptions], [WithUpdateCallback].
type Option func(*feedConfig) error

// WithEndpoints sets the backend URLs the feed subscribes to.
//
// If not specified, [DefaultEndpoints] is used.
//
// Example:
//
//	ep, _ := pulsefeed.NewEndpoints("http://trainer.local:8000")
//	feed, err := pulsefeed.New(pulsefeed.WithEndpoints(ep))
func WithEndpoints(ep Endpoints) Option {
	return func(cfg *feedConfig) error {
		cfg.endpoints = &ep
		return nil
	}
}

// WithPort sets the HTTP port for the relay server.
//
// The relayed state is available at http://localhost:<port>/api/state.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *feedConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithoutRelay disables the relay HTTP server. State is still available
// through the adapters and update callbacks.
func WithoutRelay() Option {
	return func(cfg *feedConfig) error {
		cfg.relay = false
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Feed and its sessions.
//
// If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	feed, err := pulsefeed.New(pulsefeed.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *feedConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRegistry sets the Prometheus registry that session metrics are
// registered on and that the relay's /metrics route serves.
//
// If not specified, a fresh registry is created per Feed.
//
// Returns an error if the registry is nil.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *feedConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithSessionOptions passes options to all three stream sessions, for
// example a heartbeat or a transport carrying auth headers.
//
// Example:
//
//	feed, err := pulsefeed.New(
//	    pulsefeed.WithSessionOptions(
//	        pulsefeed.WithHeartbeat(10*time.Second),
//	        pulsefeed.WithTransport(pulsefeed.NewHTTPTransport(headers)),
//	    ),
//	)
//
// A [WithObserver] passed here replaces the feed's Prometheus observer.
func WithSessionOptions(opts ...SessionOption) Option {
	return func(cfg *feedConfig) error {
		cfg.sessionOpts = append(cfg.sessionOpts, opts...)
		return nil
	}
}

// WithUpdateCallback registers a function to be called on every change of
// any stream's state.
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Callbacks for one stream are
// invoked from a single goroutine; different streams call back concurrently.
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	feed, err := pulsefeed.New(
//	    pulsefeed.WithUpdateCallback(func(u pulsefeed.StreamUpdate) {
//	        if !u.Connected {
//	            log.Printf("%s disconnected", u.Stream)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithUpdateCallback(cb func(StreamUpdate)) Option {
	return func(cfg *feedConfig) error {
		if cb == nil {
			return nil
		}
		cfg.updateCallbacks = append(cfg.updateCallbacks, cb)
		return nil
	}
}
