package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/pulsefeed"
)

const (
	maxResponseBodySize = 1 << 20 // 1MB
	defaultTimeout      = 10 * time.Second
)

// Settings are the backend's metric computation parameters.
type Settings struct {
	Age                         int     `json:"age"`
	SpeedWheelCircumferenceM    float64 `json:"speed_wheel_circumference_m"`
	DistanceWheelCircumferenceM float64 `json:"distance_wheel_circumference_m"`
}

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Method     string
	URL        string
	StatusCode int

	// Detail is the backend's error message, or the raw body if it was not
	// a {"detail": ...} document.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Detail)
}

// Client calls the backend's control routes.
//
// Each call is bounded by the client's timeout. Response bodies are limited
// to 1MB.
type Client struct {
	endpoints  pulsefeed.Endpoints
	headers    map[string]string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client) error

// WithTimeout sets the per-request timeout. Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) error {
		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// NewClient creates a [Client] for the routes in ep.
//
// Returns an error if ep has no base URL, since a process cannot issue
// same-origin requests.
func NewClient(ep pulsefeed.Endpoints, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(ep.BaseURL(), "http://") && !strings.HasPrefix(ep.BaseURL(), "https://") {
		return nil, fmt.Errorf("control client needs an absolute http base url, got %q", ep.BaseURL())
	}

	c := &Client{
		endpoints:  ep,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// StartMetrics starts sensor collection.
func (c *Client) StartMetrics(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pulsefeed.RouteStartMetrics, nil, nil)
}

// StopMetrics stops sensor collection.
func (c *Client) StopMetrics(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pulsefeed.RouteStopMetrics, nil, nil)
}

// GetSettings returns the current metric settings.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := c.do(ctx, http.MethodGet, pulsefeed.RouteSettings, nil, &s)
	return s, err
}

// UpdateSettings replaces the metric settings.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) error {
	return c.do(ctx, http.MethodPost, pulsefeed.RouteSettings, s, nil)
}

// GetWorkout returns the configured interval list.
func (c *Client) GetWorkout(ctx context.Context) ([]pulsefeed.Interval, error) {
	var intervals []pulsefeed.Interval
	err := c.do(ctx, http.MethodGet, pulsefeed.RouteWorkout, nil, &intervals)
	return intervals, err
}

// SetWorkout replaces the interval list.
//
// Returns an error without calling the backend if an interval has an empty
// name or a non-positive duration.
func (c *Client) SetWorkout(ctx context.Context, intervals []pulsefeed.Interval) error {
	for i, iv := range intervals {
		if iv.Name == "" {
			return fmt.Errorf("interval %d: name is required", i)
		}
		if iv.Seconds <= 0 {
			return fmt.Errorf("interval %d (%s): seconds must be positive", i, iv.Name)
		}
	}
	if intervals == nil {
		intervals = []pulsefeed.Interval{}
	}
	return c.do(ctx, http.MethodPost, pulsefeed.RouteWorkout, intervals, nil)
}

// StartWorkout starts the interval timer.
func (c *Client) StartWorkout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pulsefeed.RouteStartWorkout, nil, nil)
}

// StopWorkout stops the interval timer.
func (c *Client) StopWorkout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pulsefeed.RouteStopWorkout, nil, nil)
}

// do sends one request. in, if non-nil, is sent as the JSON body; out, if
// non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, method string, route pulsefeed.Route, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.endpoints.URL(route)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

// errorDetail extracts the message from a {"detail": ...} error body. A
// detail that is not a string (validation errors) is returned as JSON.
func errorDetail(body []byte) string {
	var doc struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(doc.Detail, &s); err == nil {
		return s
	}
	return string(doc.Detail)
}
