package pulsefeed

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a virtual Clock. Timers fire only from Advance, on the
// calling goroutine, in due-time order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves time forward by d, firing every timer that falls due,
// including timers armed by callbacks fired along the way.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// nextDue returns the earliest pending timer due at or before target. Caller holds mu.
func (c *fakeClock) nextDue(target time.Time) *fakeTimer {
	var pending []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].at.Equal(pending[j].at) {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].at.Before(pending[j].at)
	})
	return pending[0]
}

// Pending returns the number of armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeTransport records every Open and lets tests drive each connection.
type fakeTransport struct {
	mu      sync.Mutex
	conns   []*fakeConn
	openErr error
}

type fakeConn struct {
	url    string
	events TransportEvents

	mu     sync.Mutex
	closed bool
}

func (t *fakeTransport) Open(url string, events TransportEvents) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openErr != nil {
		return nil, t.openErr
	}
	c := &fakeConn{url: url, events: events}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) setOpenErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

// count returns the number of successful Open calls.
func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// last returns the most recently opened connection.
func (t *fakeTransport) last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) open()            { c.events.OnOpen() }
func (c *fakeConn) send(data string) { c.events.OnMessage([]byte(data)) }
func (c *fakeConn) fail(err error)   { c.events.OnError(err) }

// recordingObserver counts session events.
type recordingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{counts: make(map[string]int)}
}

func (o *recordingObserver) inc(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[key]++
}

func (o *recordingObserver) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[key]
}

func (o *recordingObserver) ConnectionChanged(_ string, connected bool) {
	if connected {
		o.inc("connected")
	} else {
		o.inc("disconnected")
	}
}
func (o *recordingObserver) MessageReceived(string)        { o.inc("received") }
func (o *recordingObserver) MessageDropped(string, error)  { o.inc("dropped") }
func (o *recordingObserver) HeartbeatExpired(string)       { o.inc("expired") }
func (o *recordingObserver) TransportFailed(string, error) { o.inc("failed") }
func (o *recordingObserver) ReconnectScheduled(string)     { o.inc("reconnect") }
