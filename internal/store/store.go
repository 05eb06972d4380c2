package store

import "time"

// Snapshot is the relayed state of one upstream stream.
//
// Snapshot is optimized for JSON serialization (used by the REST API and
// SSE). Data holds the stream's state value and is never modified after
// the snapshot is stored.
type Snapshot struct {
	// Stream is the stream name ("metrics", "devices", "workout").
	Stream string `json:"stream"`

	// Connected reports whether the upstream session is currently live.
	Connected bool `json:"connected"`

	// LastUpdated is the time the last upstream message was applied.
	// nil until the first message.
	LastUpdated *time.Time `json:"last_updated"`

	// Data is the stream's accumulated state.
	Data any `json:"data"`
}

// Store defines the interface for storing and subscribing to snapshots.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a snapshot and notifies all subscribers.
	// The snapshot is keyed by Stream, replacing the previous value.
	Update(snap Snapshot)

	// GetAll returns all stored snapshots ordered by stream name.
	// The returned slice is a copy; modifications do not affect the store.
	GetAll() []Snapshot

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
