package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Snapshots are keyed by stream name, with new snapshots replacing previous
// values. Subscribers receive updates via buffered channels (buffer size
// 100); if a subscriber's buffer is full the update is dropped for that
// subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[string]Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:   make(map[string]Snapshot),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores a [Snapshot] and notifies all subscribers.
func (m *MemoryStore) Update(snap Snapshot) {
	m.mu.Lock()
	m.snapshots[snap.Stream] = snap
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// GetAll returns a snapshot of all stored streams, sorted by stream name.
func (m *MemoryStore) GetAll() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Snapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		results = append(results, snap)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Stream < results[j].Stream })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the snapshot
		}
	}
}
