// Package svstore implements the single-version variant of storage.IStorage.
//
// Each key maps to exactly one entry holding the latest value, the id of the
// transaction that wrote it, and the logical commit timestamp of that write.
// A write overwrites; a read returns the latest value regardless of the
// snapshot timestamp parameter. Isolation is entirely the scheduler's
// problem: the serial and locking protocols guarantee exclusive access
// before touching a key, and the optimistic protocols use the recorded
// timestamps to detect that a key changed after a transaction started.
//
// Concurrency:
//
//	The store is backed by an xsync.MapOf, which shards keys internally and
//	provides lock-free reads. Entries are replaced wholesale, never mutated
//	in place, so readers always observe a consistent (value, writer,
//	timestamp) triple.
package svstore
