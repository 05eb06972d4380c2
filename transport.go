package pulsefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/jpalmerr/pulsefeed/internal/sse"
)

// ErrStreamClosed is reported through [TransportEvents.OnError] when the
// server ends an event stream cleanly.
var ErrStreamClosed = errors.New("event stream closed by server")

// TransportEvents are the callbacks a [Transport] invokes for one connection.
//
// A Transport must never invoke these from inside [Transport.Open]; they are
// delivered asynchronously once the connection makes progress.
type TransportEvents struct {
	// OnOpen fires once the stream is established.
	OnOpen func()

	// OnMessage fires for every event payload, in arrival order.
	OnMessage func(data []byte)

	// OnError fires at most once when the connection fails or ends.
	OnError func(err error)
}

// Conn is a handle to one open event-stream connection.
type Conn interface {
	// Close tears the connection down. It must not block waiting for
	// in-flight callbacks to return.
	Close() error
}

// Transport opens event-stream connections for a [Session].
//
// The production implementation is [HTTPTransport]. Abstracting the network
// lets sessions be driven by an in-memory fake in tests.
type Transport interface {
	Open(url string, events TransportEvents) (Conn, error)
}

// HTTPTransport is a [Transport] that speaks Server-Sent Events over HTTP.
//
// Each call to Open starts one GET request whose body is read on a dedicated
// goroutine. A clean end of the response is reported as [ErrStreamClosed].
// HTTPTransport is safe for concurrent use by multiple sessions.
type HTTPTransport struct {
	client  *sse.Client
	headers map[string]string
}

// NewHTTPTransport creates an [HTTPTransport] that sends headers with every request.
func NewHTTPTransport(headers map[string]string) *HTTPTransport {
	return &HTTPTransport{
		client:  sse.NewClient(),
		headers: copyMap(headers),
	}
}

// Open starts streaming from rawURL. Only absolute http and https URLs are
// accepted; an empty base URL (same-origin) cannot be dialed from a process.
func (t *HTTPTransport) Open(rawURL string, events TransportEvents) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("stream url %q must be absolute http or https", rawURL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &httpConn{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(conn.done)

		stream, err := t.client.Open(ctx, rawURL, t.headers)
		if err != nil {
			if ctx.Err() == nil {
				events.OnError(err)
			}
			return
		}
		defer func() { _ = stream.Close() }()

		if ctx.Err() != nil {
			return
		}
		events.OnOpen()

		for {
			ev, err := stream.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = ErrStreamClosed
				}
				events.OnError(err)
				return
			}
			events.OnMessage([]byte(ev.Data))
		}
	}()

	return conn, nil
}

// Close releases idle pooled connections.
func (t *HTTPTransport) Close() {
	t.client.Close()
}

// httpConn is the handle for one streaming GET.
type httpConn struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Close cancels the request. The reader goroutine exits on its own; Close
// does not wait for it.
func (c *httpConn) Close() error {
	c.cancel()
	return nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
