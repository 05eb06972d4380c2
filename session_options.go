package pulsefeed

import (
	"errors"
	"log/slog"
	"time"
)

// sessionConfig holds mutable state during Session construction.
type sessionConfig struct {
	name           string
	heartbeat      time.Duration
	reconnectDelay time.Duration
	transport      Transport
	clock          Clock
	logger         *slog.Logger
	observer       SessionObserver
}

// SessionOption configures a [Session] during construction.
//
// Options return an error if validation fails. Built-in options:
// [WithName], [WithHeartbeat], [WithReconnectDelay], [WithTransport],
// [WithClock], [WithSessionLogger], [WithObserver].
type SessionOption func(*sessionConfig) error

// WithName sets the stream name used in logs and metrics.
// Defaults to the stream URL.
func WithName(name string) SessionOption {
	return func(cfg *sessionConfig) error {
		if name == "" {
			return errors.New("session name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithHeartbeat sets how long a session waits for any message before it
// declares the connection stale, closes it and schedules a reconnect.
// Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithHeartbeat(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) error {
		if d <= 0 {
			return errors.New("heartbeat must be positive")
		}
		cfg.heartbeat = d
		return nil
	}
}

// WithReconnectDelay sets the fixed delay between a failure and the next
// connection attempt. Defaults to 2 seconds.
//
// Returns an error if the duration is zero or negative.
func WithReconnectDelay(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) error {
		if d <= 0 {
			return errors.New("reconnect delay must be positive")
		}
		cfg.reconnectDelay = d
		return nil
	}
}

// WithTransport sets the [Transport] used to open connections.
// Defaults to an [HTTPTransport] without extra headers.
func WithTransport(t Transport) SessionOption {
	return func(cfg *sessionConfig) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = t
		return nil
	}
}

// WithClock sets the [Clock] used for heartbeat and reconnect timers.
// Defaults to [SystemClock].
func WithClock(c Clock) SessionOption {
	return func(cfg *sessionConfig) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithSessionLogger sets the logger for connection events and discarded
// payloads. Defaults to [slog.Default].
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(cfg *sessionConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithObserver registers a [SessionObserver]. Nil is ignored.
func WithObserver(o SessionObserver) SessionOption {
	return func(cfg *sessionConfig) error {
		if o != nil {
			cfg.observer = o
		}
		return nil
	}
}
