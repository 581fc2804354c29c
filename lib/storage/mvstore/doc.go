// Package mvstore implements the multi-version variant of storage.IStorage.
//
// Each key maps to a version chain: a slice of (value, writer, timestamp)
// versions ordered by strictly increasing commit timestamp. A write appends
// a new version; a read at snapshot timestamp τ returns the newest version
// with timestamp ≤ τ, or reports the key as absent if no such version
// exists. This gives the MVCC scheduler snapshot reads without any locking
// during execution.
//
// Invariants:
//
//   - Timestamps are strictly increasing per key. An append with a timestamp
//     not greater than the newest existing version indicates a scheduler bug
//     and panics.
//   - Prune(oldest) keeps, for every key, all versions with timestamp ≥
//     oldest plus the newest version with timestamp < oldest, since that one
//     is still visible to a snapshot taken at oldest.
//
// Concurrency:
//
//	The key → chain mapping is an xsync.MapOf; chains are created on first
//	write with LoadOrStore. Each chain carries its own RWMutex: appends and
//	pruning take the write lock, snapshot reads the read lock. Writers to
//	disjoint keys therefore proceed independently, while two writers to the
//	same key serialize exactly as the MVCC protocol requires.
package mvstore
