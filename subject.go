package pulsefeed

import "sync"

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 100

// Observable is the read side of a [Subject].
//
// Stream adapters hand out Observables so that only the adapter's own
// message handler can write the state.
type Observable[T any] interface {
	// Get returns the current value.
	Get() T

	// Subscribe returns a channel that receives every subsequent value.
	// Slow subscribers miss values rather than block the writer.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan T

	// Unsubscribe removes a subscription and closes its channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan T)
}

// Subject holds a value and publishes every change to its subscribers.
//
// Subject is safe for concurrent use. Values are delivered to subscribers in
// the order they were written; delivery is non-blocking, so a subscriber
// whose buffer (100 values) is full drops the update. Values of reference
// type (maps, slices) must be treated as immutable snapshots by writers and
// readers alike.
type Subject[T any] struct {
	mu          sync.RWMutex
	value       T
	subscribers map[chan T]struct{}
}

// NewSubject creates a [Subject] holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value:       initial,
		subscribers: make(map[chan T]struct{}),
	}
}

// Get returns the current value.
func (s *Subject[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Subject[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.notify(v)
}

// Update replaces the value with fn(current) and notifies subscribers.
// fn runs under the subject's lock and must not call back into the subject.
func (s *Subject[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = fn(s.value)
	s.notify(s.value)
	return s.value
}

// Subscribe creates a new subscription.
func (s *Subject[T]) Subscribe() <-chan T {
	ch := make(chan T, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Subject[T]) Unsubscribe(ch <-chan T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subCh := range s.subscribers {
		if subCh == ch {
			delete(s.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notify sends v to every subscriber without blocking. Caller holds mu.
func (s *Subject[T]) notify(v T) {
	for ch := range s.subscribers {
		select {
		case ch <- v:
		default:
			// subscriber is slow, drop the value
		}
	}
}
