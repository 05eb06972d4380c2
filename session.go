package pulsefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHeartbeat      = 5 * time.Second
	defaultReconnectDelay = 2 * time.Second
)

// ErrStopped is returned by [Session.Start] once the session has been stopped.
var ErrStopped = errors.New("session stopped")

// SessionState is the position of a [Session] in its connection lifecycle.
type SessionState int

const (
	// StateIdle is a session that has not been started.
	StateIdle SessionState = iota

	// StateConnecting is a session waiting for its transport to open.
	StateConnecting

	// StateOpen is a session whose transport opened or delivered a message.
	StateOpen

	// StateStale is a session whose heartbeat expired; a reconnect is pending.
	StateStale

	// StateErrored is a session whose transport failed; a reconnect is pending.
	StateErrored

	// StateStopped is terminal.
	StateStopped
)

// String returns the lowercase name of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateStale:
		return "stale"
	case StateErrored:
		return "errored"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session supervises one long-lived event-stream subscription.
//
// A Session opens a connection through its [Transport], decodes every
// message as JSON into the record type given to [NewSession] and hands it to
// the onData callback. Any successfully decoded message proves liveness: if
// none arrives within the heartbeat window the connection is declared stale,
// closed and retried after the reconnect delay. Transport errors take the
// same path. Retries are unbounded with a fixed delay; a Session never gives
// up on its own and never surfaces connection failures as errors, only as
// [Session.Connected] going false.
//
// Transport and timer callbacks are serialized by an internal lock, so
// onData never runs concurrently with itself or with the session's own state
// transitions. onData must not call [Session.Start] or [Session.Stop].
//
// The typical lifecycle is:
//
//	s, err := pulsefeed.NewSession(url, func(m map[string]any) { ... })
//	if err != nil {
//	    return err
//	}
//	_ = s.Start()
//	defer s.Stop()
type Session struct {
	id             string
	name           string
	url            string
	decode         func(data []byte) (deliver func(), err error)
	heartbeat      time.Duration
	reconnectDelay time.Duration
	transport      Transport
	clock          Clock
	logger         *slog.Logger
	observer       SessionObserver

	connected   *Subject[bool]
	lastUpdated *Subject[time.Time]

	mu    sync.Mutex
	state SessionState
	conn  Conn
	// gen identifies the current connection; callbacks from older ones are ignored
	gen uint64
	// tokens identify armed timers; zero means no timer is pending
	nextToken      uint64
	heartbeatToken uint64
	heartbeatTimer Timer
	reconnectToken uint64
	reconnectTimer Timer
}

// NewSession creates a [Session] for url that decodes each message into T
// and passes it to onData.
//
// The session is idle until [Session.Start] is called. Defaults: 5s
// heartbeat, 2s reconnect delay, [HTTPTransport], [SystemClock],
// [slog.Default].
//
// Returns an error if url is empty, onData is nil or an option is invalid.
func NewSession[T any](url string, onData func(T), opts ...SessionOption) (*Session, error) {
	if url == "" {
		return nil, errors.New("session url cannot be empty")
	}
	if onData == nil {
		return nil, errors.New("session onData callback cannot be nil")
	}

	cfg := &sessionConfig{
		name:           url,
		heartbeat:      defaultHeartbeat,
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.transport == nil {
		cfg.transport = NewHTTPTransport(nil)
	}
	if cfg.clock == nil {
		cfg.clock = SystemClock{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.observer == nil {
		cfg.observer = nopObserver{}
	}

	id := uuid.NewString()

	return &Session{
		id:   id,
		name: cfg.name,
		url:  url,
		decode: func(data []byte) (func(), error) {
			var record T
			if err := json.Unmarshal(data, &record); err != nil {
				return nil, err
			}
			return func() { onData(record) }, nil
		},
		heartbeat:      cfg.heartbeat,
		reconnectDelay: cfg.reconnectDelay,
		transport:      cfg.transport,
		clock:          cfg.clock,
		logger:         cfg.logger.With("stream", cfg.name, "session_id", id),
		observer:       cfg.observer,
		connected:      NewSubject(false),
		lastUpdated:    NewSubject(time.Time{}),
	}, nil
}

// ID returns the session's unique identifier, as logged with every event.
func (s *Session) ID() string {
	return s.id
}

// Name returns the stream name used in logs and metrics.
func (s *Session) Name() string {
	return s.name
}

// URL returns the stream URL.
func (s *Session) URL() string {
	return s.url
}

// Connected is true while a connection is open and its heartbeat has not expired.
func (s *Session) Connected() Observable[bool] {
	return s.connected
}

// LastUpdated is the time the last message was applied. The zero time means
// no message has been applied yet.
func (s *Session) LastUpdated() Observable[time.Time] {
	return s.lastUpdated
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens a connection, closing any previous one and cancelling pending
// timers first. Connection failures are not returned; they are retried.
//
// Returns [ErrStopped] if the session has been stopped.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return ErrStopped
	}
	s.connect()
	return nil
}

// Stop cancels both timers, closes the connection if one is open and moves
// the session to [StateStopped]. No callback mutates the session's state
// after Stop returns. Stop is idempotent and safe on a session that was
// never started.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	s.cancelHeartbeat()
	s.cancelReconnect()
	s.closeConn()
	s.setConnected(false)
	s.state = StateStopped
	s.logger.Debug("stream session stopped")
}

// connect opens a fresh connection. Caller holds mu.
func (s *Session) connect() {
	s.cancelHeartbeat()
	s.cancelReconnect()
	s.closeConn()

	gen := s.gen
	s.state = StateConnecting
	s.logger.Debug("stream connecting", "url", s.url)

	conn, err := s.transport.Open(s.url, TransportEvents{
		OnOpen:    func() { s.handleOpen(gen) },
		OnMessage: func(data []byte) { s.handleMessage(gen, data) },
		OnError:   func(err error) { s.handleError(gen, err) },
	})
	if err != nil {
		s.fail(fmt.Errorf("open stream: %w", err))
		return
	}
	s.conn = conn
}

// current reports whether a callback tagged with gen may still act. Caller holds mu.
func (s *Session) current(gen uint64) bool {
	return s.state != StateStopped && s.gen == gen
}

func (s *Session) handleOpen(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return
	}
	s.state = StateOpen
	s.setConnected(true)
	s.resetHeartbeat()
	s.logger.Info("stream connected", "url", s.url)
}

func (s *Session) handleMessage(gen uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return
	}

	deliver, err := s.decode(data)
	if err != nil {
		s.logger.Warn("stream payload discarded", "error", err, "bytes", len(data))
		s.observer.MessageDropped(s.name, err)
		return
	}
	if err := s.deliverSafe(deliver); err != nil {
		s.observer.MessageDropped(s.name, err)
		return
	}

	now := s.clock.Now()
	// keep lastUpdated strictly increasing even on coarse clocks
	if prev := s.lastUpdated.Get(); !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	s.lastUpdated.Set(now)
	s.state = StateOpen
	s.setConnected(true)
	s.resetHeartbeat()
	s.observer.MessageReceived(s.name)
}

// deliverSafe runs the onData callback with panic recovery. A panicking
// callback is logged with a correlation ID and the message counts as dropped.
func (s *Session) deliverSafe(deliver func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("stream callback panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("callback panic (correlation_id: %s)", correlationID)
		}
	}()
	deliver()
	return nil
}

func (s *Session) handleError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return
	}
	s.fail(err)
}

// fail handles a transport-level failure. Caller holds mu.
func (s *Session) fail(err error) {
	s.logger.Warn("stream transport error", "error", err)
	s.observer.TransportFailed(s.name, err)
	s.state = StateErrored
	s.setConnected(false)
	s.closeConn()
	s.scheduleReconnect()
}

// resetHeartbeat re-arms the staleness timer. Caller holds mu.
func (s *Session) resetHeartbeat() {
	s.cancelHeartbeat()

	s.nextToken++
	token := s.nextToken
	s.heartbeatToken = token
	s.heartbeatTimer = s.clock.AfterFunc(s.heartbeat, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state == StateStopped || s.heartbeatToken != token {
			return
		}
		s.heartbeatToken = 0
		s.heartbeatTimer = nil
		s.expire()
	})
}

// expire handles a heartbeat timeout. Caller holds mu.
func (s *Session) expire() {
	s.logger.Warn("stream heartbeat expired", "heartbeat", s.heartbeat.String())
	s.observer.HeartbeatExpired(s.name)
	s.state = StateStale
	s.setConnected(false)
	s.closeConn()
	s.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer unless one is already pending.
// Caller holds mu.
func (s *Session) scheduleReconnect() {
	if s.reconnectToken != 0 {
		return
	}

	s.nextToken++
	token := s.nextToken
	s.reconnectToken = token
	s.reconnectTimer = s.clock.AfterFunc(s.reconnectDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state == StateStopped || s.reconnectToken != token {
			return
		}
		s.reconnectToken = 0
		s.reconnectTimer = nil
		s.connect()
	})

	s.observer.ReconnectScheduled(s.name)
	s.logger.Info("stream reconnect scheduled", "delay", s.reconnectDelay.String())
}

// cancelHeartbeat stops the staleness timer. Caller holds mu.
func (s *Session) cancelHeartbeat() {
	if s.heartbeatTimer != nil {
		s.heartbeatTimer.Stop()
		s.heartbeatTimer = nil
	}
	s.heartbeatToken = 0
}

// cancelReconnect stops a pending reconnect. Caller holds mu.
func (s *Session) cancelReconnect() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.reconnectToken = 0
}

// closeConn closes the current connection and invalidates its callbacks.
// Caller holds mu.
func (s *Session) closeConn() {
	s.gen++
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("stream close error", "error", err)
	}
	s.conn = nil
}

// setConnected updates the connected flag if it changed. Caller holds mu.
func (s *Session) setConnected(v bool) {
	if s.connected.Get() == v {
		return
	}
	s.connected.Set(v)
	s.observer.ConnectionChanged(s.name, v)
}
