package pulsefeed

import "time"

// Clock schedules the heartbeat and reconnect callbacks of a [Session].
//
// The default is [SystemClock]. Tests substitute a virtual clock to advance
// time deterministically instead of sleeping.
type Clock interface {
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// Now returns the current time.
	Now() time.Time
}

// Timer is a cancellable pending callback returned by [Clock.AfterFunc].
type Timer interface {
	// Stop prevents the callback from firing. It reports false if the
	// callback already fired or was already stopped.
	Stop() bool
}

// SystemClock is a [Clock] backed by the time package.
type SystemClock struct{}

// AfterFunc wraps [time.AfterFunc].
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Now wraps [time.Now].
func (SystemClock) Now() time.Time {
	return time.Now()
}
