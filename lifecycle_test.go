package pulsefeed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingLifecycle struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
}

func (l *countingLifecycle) Start() error {
	l.starts.Add(1)
	return l.startErr
}

func (l *countingLifecycle) Stop() {
	l.stops.Add(1)
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBind_StopsOnContextCancel(t *testing.T) {
	l := &countingLifecycle{}
	ctx, cancel := context.WithCancel(context.Background())

	unbind, err := Bind(ctx, l)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if l.starts.Load() != 1 {
		t.Errorf("starts = %d, want 1", l.starts.Load())
	}
	if l.stops.Load() != 0 {
		t.Errorf("stops = %d before cancel, want 0", l.stops.Load())
	}

	cancel()
	waitFor(t, func() bool { return l.stops.Load() == 1 })

	// unbind after cancellation does not stop twice
	unbind()
	if l.stops.Load() != 1 {
		t.Errorf("stops = %d, want exactly 1", l.stops.Load())
	}
}

func TestBind_UnbindStopsOnce(t *testing.T) {
	l := &countingLifecycle{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unbind, err := Bind(ctx, l)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	unbind()
	unbind()
	cancel()
	time.Sleep(20 * time.Millisecond)

	if l.stops.Load() != 1 {
		t.Errorf("stops = %d, want exactly 1", l.stops.Load())
	}
}

func TestBind_StartError(t *testing.T) {
	l := &countingLifecycle{startErr: errors.New("cannot start")}

	unbind, err := Bind(context.Background(), l)
	if err == nil {
		t.Fatal("Bind() error = nil, want start error")
	}
	if unbind != nil {
		t.Error("Bind() returned an unbind func on error")
	}
	if l.stops.Load() != 0 {
		t.Errorf("stops = %d, want 0", l.stops.Load())
	}
}

func TestBind_Session(t *testing.T) {
	transport := &fakeTransport{}
	s, err := NewSession("http://backend.test/stream", func(record) {},
		WithTransport(transport), WithClock(newFakeClock()), WithSessionLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := Bind(ctx, s); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	conn := transport.last()
	conn.open()

	cancel()
	waitFor(t, func() bool { return s.State() == StateStopped })

	if !conn.isClosed() {
		t.Error("connection not closed after the bound context ended")
	}
}
