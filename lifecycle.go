package pulsefeed

import (
	"context"
	"sync"
)

// Lifecycle is anything that can be started and stopped, such as a
// [Session] or one of the stream adapters embedding it.
type Lifecycle interface {
	Start() error
	Stop()
}

// Bind ties l to the lifetime of its consumer: l is started now and stopped
// exactly once, either when ctx is cancelled or when the returned unbind
// function is called, whichever comes first.
//
// Returns the error from l.Start, in which case nothing is bound.
//
// Example:
//
//	unbind, err := pulsefeed.Bind(ctx, metricsStream)
//	if err != nil {
//	    return err
//	}
//	defer unbind()
func Bind(ctx context.Context, l Lifecycle) (unbind func(), err error) {
	if err := l.Start(); err != nil {
		return nil, err
	}

	var once sync.Once
	released := make(chan struct{})
	stop := func() {
		once.Do(func() {
			l.Stop()
			close(released)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-released:
		}
	}()

	return stop, nil
}
