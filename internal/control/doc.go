// Package control issues the request/response commands that drive the
// training backend: starting and stopping sensor collection and the
// interval timer, and reading or replacing settings and the interval list.
//
// The event streams themselves are consumed by the pulsefeed package; this
// package only covers the plain HTTP routes next to them.
package control
