package pulsefeed

// SessionObserver receives lifecycle signals from a [Session], typically to
// feed metrics. Every method is called with the session's stream name while
// the session's internal lock is held, so implementations must be fast and
// must not call back into the session.
type SessionObserver interface {
	// ConnectionChanged reports a flip of the connected flag.
	ConnectionChanged(stream string, connected bool)

	// MessageReceived reports a payload that was decoded and applied.
	MessageReceived(stream string)

	// MessageDropped reports a payload that was discarded.
	MessageDropped(stream string, err error)

	// HeartbeatExpired reports that no message arrived within the heartbeat window.
	HeartbeatExpired(stream string)

	// TransportFailed reports an error or close signalled by the transport.
	TransportFailed(stream string, err error)

	// ReconnectScheduled reports that a reconnect timer was armed.
	ReconnectScheduled(stream string)
}

// nopObserver is the default [SessionObserver].
type nopObserver struct{}

func (nopObserver) ConnectionChanged(string, bool) {}
func (nopObserver) MessageReceived(string)         {}
func (nopObserver) MessageDropped(string, error)   {}
func (nopObserver) HeartbeatExpired(string)        {}
func (nopObserver) TransportFailed(string, error)  {}
func (nopObserver) ReconnectScheduled(string)      {}
