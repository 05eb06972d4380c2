package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/pulsefeed"
	"github.com/jpalmerr/pulsefeed/internal/control"
)

// BuildEndpoints converts parsed configuration into SDK [pulsefeed.Endpoints].
func BuildEndpoints(cfg *Config) (pulsefeed.Endpoints, error) {
	// sort route names for deterministic error reporting
	names := make([]string, 0, len(cfg.Routes))
	for name := range cfg.Routes {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]pulsefeed.EndpointsOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, pulsefeed.WithRoute(pulsefeed.Route(name), cfg.Routes[name]))
	}

	return pulsefeed.NewEndpoints(cfg.BaseURL, opts...)
}

// BuildSessionOptions returns the session timing and transport options.
func BuildSessionOptions(cfg *Config) []pulsefeed.SessionOption {
	opts := []pulsefeed.SessionOption{
		pulsefeed.WithHeartbeat(cfg.Heartbeat.Duration()),
		pulsefeed.WithReconnectDelay(cfg.ReconnectDelay.Duration()),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, pulsefeed.WithTransport(pulsefeed.NewHTTPTransport(cfg.Headers)))
	}
	return opts
}

// BuildOptions converts parsed configuration into SDK [pulsefeed.Option]
// values for [pulsefeed.New].
func BuildOptions(cfg *Config, logger *slog.Logger) ([]pulsefeed.Option, error) {
	ep, err := BuildEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	opts := []pulsefeed.Option{
		pulsefeed.WithEndpoints(ep),
		pulsefeed.WithPort(cfg.Port),
		pulsefeed.WithSessionOptions(BuildSessionOptions(cfg)...),
	}
	if logger != nil {
		opts = append(opts, pulsefeed.WithLogger(logger))
	}
	if !cfg.RelayEnabled() {
		opts = append(opts, pulsefeed.WithoutRelay())
	}
	return opts, nil
}

// BuildControlClient creates a control client for the configured backend.
func BuildControlClient(cfg *Config) (*control.Client, error) {
	ep, err := BuildEndpoints(cfg)
	if err != nil {
		return nil, err
	}
	return control.NewClient(ep,
		control.WithTimeout(cfg.RequestTimeout.Duration()),
		control.WithHeaders(cfg.Headers),
	)
}
