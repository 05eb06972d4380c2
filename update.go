package pulsefeed

import "time"

// Stream names used by the [Feed] adapters, in logs, metrics labels and
// relay snapshots.
const (
	StreamMetrics = "metrics"
	StreamDevices = "devices"
	StreamWorkout = "workout"
)

// StreamUpdate is the state of one stream after a change, as passed to
// [WithUpdateCallback] callbacks.
type StreamUpdate struct {
	// Stream is one of [StreamMetrics], [StreamDevices], [StreamWorkout].
	Stream string

	// Connected mirrors the session's Connected flag.
	Connected bool

	// LastUpdated is the time the last message was applied; zero if none yet.
	LastUpdated time.Time

	// Data is the stream's current state: a [Metrics], a []Device or a [Workout].
	// It is a shared snapshot and must not be modified.
	Data any
}
