// Package repositories implements the SQLite-backed owned-collection index.
//
// Key Implementations:
//   - [CollectionRepository] : owned album rows keyed by folder path, plus scanned library roots
//   - [Scanner] : indexes an Artist/Album folder tree under a file lock
//   - [CollectionMatcher] : partitions catalog candidates into new and already-owned albums
//
// Sequence numbers keep insertion order stable independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
