package sse

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxErrorBodySize limits how much of a rejected response is read for the error message.
const maxErrorBodySize = 4 << 10

// connection pooling limits; a feed holds a handful of long-lived streams per host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultIdleConnTimeout     = 60 * time.Second
	defaultDialTimeout         = 10 * time.Second
	defaultHeaderTimeout       = 15 * time.Second
)

// Client is an HTTP client wrapper for opening event streams.
//
// Client never applies an overall request timeout: a healthy stream stays
// open indefinitely. Only dialing and waiting for response headers are
// bounded. Liveness of an established stream is the caller's concern.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new streaming [Client].
//
// Connection pooling configuration:
//   - MaxIdleConns: 10 total idle connections
//   - MaxIdleConnsPerHost: 4 idle connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
//   - Dial and response header timeouts: 10s and 15s
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no overall timeout - streams are long-lived, cancellation is via context
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: defaultDialTimeout}).DialContext,
				MaxIdleConns:          defaultMaxIdleConns,
				MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
				IdleConnTimeout:       defaultIdleConnTimeout,
				ResponseHeaderTimeout: defaultHeaderTimeout,
			},
		},
	}
}

// NewClientWithHTTP wraps an existing *http.Client, e.g. one produced by httptest.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Open issues a GET for url and returns a [Reader] over the event stream.
//
// The stream stays open until ctx is cancelled, the server ends the response,
// or the returned Reader is closed. Open fails if the server answers with a
// non-2xx status or a content type other than text/event-stream.
func (c *Client) Open(ctx context.Context, url string, headers map[string]string) (Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/event-stream" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	return NewReader(resp.Body), nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. The client remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

// StatusError is returned by [Client.Open] when the server rejects the stream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stream rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("stream rejected with status %d: %s", e.StatusCode, e.Body)
}
