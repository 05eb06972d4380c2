package pulsefeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/pulsefeed/internal/server"
	"github.com/jpalmerr/pulsefeed/internal/store"
	"github.com/jpalmerr/pulsefeed/internal/telemetry"
)

const defaultPort = 8080

var _ SessionObserver = (*telemetry.Metrics)(nil)

// Feed is the main orchestrator: it keeps the metrics, devices and workout
// streams connected and relays their combined state over HTTP.
//
// Feed is created using [New] with functional options and started with
// [Feed.Start]. The adapters are built by New, so their observables can be
// subscribed to before Start.
//
// The typical lifecycle is:
//
//	feed, err := pulsefeed.New(pulsefeed.WithEndpoints(ep))
//	if err != nil {
//	    slog.Error("failed to create feed", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	feed.Start(ctx) // blocks until context cancelled
//
// A Feed can be started once; its sessions are stopped when Start returns.
type Feed struct {
	endpoints       Endpoints
	port            int
	relay           bool
	logger          *slog.Logger
	registry        *prometheus.Registry
	updateCallbacks []func(StreamUpdate)

	metrics *MetricsStream
	devices *DevicesStream
	workout *WorkoutStream
}

// New creates a new [Feed] instance with the given options.
//
// Defaults:
//   - Endpoints: [DefaultEndpoints]
//   - Relay port: 8080
//   - Registry: a fresh [prometheus.Registry]
//
// Returns an error if any option is invalid or the session metrics cannot
// be registered.
func New(opts ...Option) (*Feed, error) {
	cfg := &feedConfig{
		port:  defaultPort,
		relay: true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	var ep Endpoints
	if cfg.endpoints != nil {
		ep = *cfg.endpoints
	} else {
		var err error
		if ep, err = DefaultEndpoints(); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	observer := telemetry.NewMetrics()
	if err := observer.Register(registry); err != nil {
		return nil, err
	}

	sessionOpts := append([]SessionOption{
		WithSessionLogger(logger),
		WithObserver(observer),
	}, cfg.sessionOpts...)

	metrics, err := NewMetricsStream(ep, sessionOpts...)
	if err != nil {
		return nil, err
	}
	devices, err := NewDevicesStream(ep, sessionOpts...)
	if err != nil {
		return nil, err
	}
	workout, err := NewWorkoutStream(ep, sessionOpts...)
	if err != nil {
		return nil, err
	}

	return &Feed{
		endpoints:       ep,
		port:            cfg.port,
		relay:           cfg.relay,
		logger:          logger,
		registry:        registry,
		updateCallbacks: cfg.updateCallbacks,
		metrics:         metrics,
		devices:         devices,
		workout:         workout,
	}, nil
}

// Start connects all streams and serves the relay.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - All three sessions are started and kept connected
//   - Every state change is mirrored into the relay store and passed to callbacks
//   - The relay HTTP server serves /api/state, /api/sse and /metrics
//
// Returns nil on graceful shutdown. Returns an error if the relay server
// fails to start or a session cannot be started (for example on a second
// call to Start).
func (f *Feed) Start(ctx context.Context) error {
	f.logger.Info("pulsefeed starting", "base_url", f.endpoints.BaseURL())

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	relayStore := store.NewMemoryStore()

	// mirrors subscribe before the sessions start so no transition is missed
	mirrorCtx, stopMirrors := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	publish := func(u StreamUpdate) { f.publish(relayStore, u) }
	startMirror(mirrorCtx, &wg, f.metrics.Session, f.metrics.Metrics(), publish)
	startMirror(mirrorCtx, &wg, f.devices.Session, f.devices.Devices(), publish)
	startMirror(mirrorCtx, &wg, f.workout.Session, f.workout.Workout(), publish)

	var unbinds []func()
	cleanup := func() {
		for _, unbind := range unbinds {
			unbind()
		}
		stopMirrors()
		wg.Wait()
	}

	for _, l := range []Lifecycle{f.metrics, f.devices, f.workout} {
		unbind, err := Bind(ctx, l)
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to start stream: %w", err)
		}
		unbinds = append(unbinds, unbind)
	}

	if f.relay {
		httpServer := server.NewServer(relayStore, f.port, f.registry, f.logger)
		if err := httpServer.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		f.logger.Info("relay available", "url", fmt.Sprintf("http://localhost:%d/api/state", f.port))
	}

	<-ctx.Done()
	cleanup()
	f.logger.Info("pulsefeed stopped")
	return nil
}

// Endpoints returns the backend URLs the feed subscribes to.
func (f *Feed) Endpoints() Endpoints {
	return f.endpoints
}

// Port returns the configured HTTP port for the relay server.
func (f *Feed) Port() int {
	return f.port
}

// Registry returns the registry holding the session metrics.
func (f *Feed) Registry() *prometheus.Registry {
	return f.registry
}

// MetricsStream returns the metrics adapter.
func (f *Feed) MetricsStream() *MetricsStream {
	return f.metrics
}

// DevicesStream returns the devices adapter.
func (f *Feed) DevicesStream() *DevicesStream {
	return f.devices
}

// WorkoutStream returns the workout adapter.
func (f *Feed) WorkoutStream() *WorkoutStream {
	return f.workout
}

// publish stores an update, then hands it to the callbacks.
func (f *Feed) publish(st store.Store, u StreamUpdate) {
	var lastUpdated *time.Time
	if !u.LastUpdated.IsZero() {
		t := u.LastUpdated
		lastUpdated = &t
	}
	st.Update(store.Snapshot{
		Stream:      u.Stream,
		Connected:   u.Connected,
		LastUpdated: lastUpdated,
		Data:        u.Data,
	})

	for _, cb := range f.updateCallbacks {
		invokeCallbackSafe(cb, u, f.logger)
	}
}

// startMirror publishes the combined state of one stream whenever its data,
// connected flag or last-updated time changes, until ctx is cancelled.
func startMirror[T any](ctx context.Context, wg *sync.WaitGroup, s *Session, data Observable[T], publish func(StreamUpdate)) {
	dataCh := data.Subscribe()
	connCh := s.Connected().Subscribe()
	updCh := s.LastUpdated().Subscribe()

	snapshot := func() StreamUpdate {
		return StreamUpdate{
			Stream:      s.Name(),
			Connected:   s.Connected().Get(),
			LastUpdated: s.LastUpdated().Get(),
			Data:        data.Get(),
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer data.Unsubscribe(dataCh)
		defer s.Connected().Unsubscribe(connCh)
		defer s.LastUpdated().Unsubscribe(updCh)

		publish(snapshot())
		for {
			select {
			case <-ctx.Done():
				return
			case <-dataCh:
			case <-connCh:
			case <-updCh:
			}
			publish(snapshot())
		}
	}()
}

// invokeCallbackSafe calls an update callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(StreamUpdate), u StreamUpdate, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update callback panicked",
				"panic", r,
				"stream", u.Stream,
			)
		}
	}()
	cb(u)
}
