package pulsefeed

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
)

// BaseURLEnv is the environment variable read by [DefaultEndpoints].
const BaseURLEnv = "PULSEFEED_API_BASE_URL"

// Route names one backend endpoint.
type Route string

const (
	// RouteMetricsStream streams metric snapshots (a JSON object per event).
	RouteMetricsStream Route = "metrics_stream"

	// RouteDevicesStream streams the connected device list (a JSON array per event).
	RouteDevicesStream Route = "devices_stream"

	// RouteWorkoutStream streams interval progress (a JSON object per event).
	RouteWorkoutStream Route = "workout_stream"

	// RouteStartMetrics starts sensor collection (POST).
	RouteStartMetrics Route = "start_metrics"

	// RouteStopMetrics stops sensor collection (POST).
	RouteStopMetrics Route = "stop_metrics"

	// RouteSettings reads (GET) or replaces (POST) the metrics settings.
	RouteSettings Route = "settings"

	// RouteWorkout reads (GET) or replaces (POST) the interval list.
	RouteWorkout Route = "workout"

	// RouteStartWorkout starts the interval timer (POST).
	RouteStartWorkout Route = "start_workout"

	// RouteStopWorkout stops the interval timer (POST).
	RouteStopWorkout Route = "stop_workout"
)

// defaultRoutes are the backend's paths.
var defaultRoutes = map[Route]string{
	RouteMetricsStream: "/metrics/stream",
	RouteDevicesStream: "/metrics/devices/stream",
	RouteWorkoutStream: "/workout/stream",
	RouteStartMetrics:  "/metrics/start",
	RouteStopMetrics:   "/metrics/stop",
	RouteSettings:      "/metrics/settings",
	RouteWorkout:       "/workout",
	RouteStartWorkout:  "/workout/start",
	RouteStopWorkout:   "/workout/stop",
}

// Routes returns every known route in sorted order.
func Routes() []Route {
	routes := make([]Route, 0, len(defaultRoutes))
	for r := range defaultRoutes {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i] < routes[j] })
	return routes
}

// Endpoints is the immutable table of backend URLs: a base URL plus a path
// per [Route].
//
// Create one with [NewEndpoints] or [DefaultEndpoints]. An empty base URL is
// valid and yields same-origin relative URLs.
type Endpoints struct {
	baseURL string
	paths   map[Route]string
}

// EndpointsOption configures [Endpoints] during construction.
type EndpointsOption func(map[Route]string) error

// WithRoute overrides the path for one route.
//
// Returns an error if the route is unknown. Path validation happens in
// [NewEndpoints].
func WithRoute(r Route, path string) EndpointsOption {
	return func(paths map[Route]string) error {
		if _, ok := defaultRoutes[r]; !ok {
			return fmt.Errorf("unknown route %q", r)
		}
		paths[r] = path
		return nil
	}
}

// NewEndpoints creates [Endpoints] rooted at baseURL.
//
// A trailing slash on baseURL is dropped. Every path must be non-empty and
// start with "/". Returns an error if baseURL does not parse or a path is
// invalid.
//
// Example:
//
//	ep, err := pulsefeed.NewEndpoints("http://trainer.local:8000",
//	    pulsefeed.WithRoute(pulsefeed.RouteWorkoutStream, "/v2/workout/stream"),
//	)
func NewEndpoints(baseURL string, opts ...EndpointsOption) (Endpoints, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		if _, err := url.Parse(baseURL); err != nil {
			return Endpoints{}, fmt.Errorf("invalid base url: %w", err)
		}
	}

	paths := make(map[Route]string, len(defaultRoutes))
	for r, p := range defaultRoutes {
		paths[r] = p
	}
	for _, opt := range opts {
		if err := opt(paths); err != nil {
			return Endpoints{}, err
		}
	}

	for _, r := range Routes() {
		p := paths[r]
		if p == "" {
			return Endpoints{}, fmt.Errorf("route %s: path is required", r)
		}
		if !strings.HasPrefix(p, "/") {
			return Endpoints{}, fmt.Errorf("route %s: path %q must start with /", r, p)
		}
	}

	return Endpoints{baseURL: baseURL, paths: paths}, nil
}

// DefaultEndpoints creates [Endpoints] with the default paths and the base
// URL taken from the PULSEFEED_API_BASE_URL environment variable (empty if unset).
func DefaultEndpoints() (Endpoints, error) {
	return NewEndpoints(os.Getenv(BaseURLEnv))
}

// BaseURL returns the base URL without a trailing slash.
func (e Endpoints) BaseURL() string {
	return e.baseURL
}

// Path returns the path configured for r, or "" for an unknown route.
func (e Endpoints) Path(r Route) string {
	return e.paths[r]
}

// URL returns the base URL joined with the path for r.
func (e Endpoints) URL(r Route) string {
	return e.baseURL + e.paths[r]
}
