// Package sse provides the client side of the Server-Sent Events wire format.
//
// This package is internal to pulsefeed. It opens long-lived HTTP event
// streams and splits the response body into discrete events.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper tuned for long-lived streaming responses
//   - [Reader]: Incremental parser that yields one [Event] per blank-line frame
//
// Reconnection, liveness detection and payload decoding are not handled here;
// they belong to the session layer in the main pulsefeed package.
package sse
