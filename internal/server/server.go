// Package server provides the relay HTTP server for pulsefeed.
//
// The server republishes the state collected from the upstream streams so
// that other processes can read it without opening their own upstream
// connections.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/pulsefeed/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Server handles HTTP requests for the relay.
//
// Server provides three endpoints:
//   - GET /api/state: Returns every stream snapshot as JSON
//   - GET /api/sse: Server-Sent Events stream of snapshot changes
//   - GET /metrics: Prometheus exposition of the session metrics
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	gatherer   prometheus.Gatherer
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store holding the relayed snapshots
//   - port: TCP port to listen on
//   - gatherer: Source for /metrics (may be nil to disable the route)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	return &Server{
		store:    st,
		port:     port,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/sse", s.handleSSE)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleState returns all current snapshots as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(s.store.GetAll()); err != nil {
		s.logger.Error("failed to encode state response", "error", err)
	}
}

// handleSSE streams snapshot updates via Server-Sent Events.
//
// The handler uses write deadlines so that a blocked write to a slow or
// vanished client cannot keep the handler from noticing shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// initial state, one event per stream
	for _, snap := range s.store.GetAll() {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.logger.Warn("failed to encode snapshot", "stream", snap.Stream, "error", err)
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
