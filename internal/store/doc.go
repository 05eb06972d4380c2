// Package store provides storage and pub/sub for relayed stream snapshots.
//
// This package is internal to pulsefeed and keeps the latest state of each
// upstream stream so the relay server can answer snapshot requests and push
// changes to its own Server-Sent Events clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: Storage representation of one stream's state
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the feed).
package store
