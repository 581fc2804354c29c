// Package lockmgr implements the per-key lock tables used by the engine's
// two-phase-locking scheduler.
//
// Each key has a FIFO queue of lock requests. The longest prefix of the
// queue that is mutually compatible holds the lock: either a single
// exclusive (write) request, or any number of shared (read) requests up to
// the first write request. Requests behind the owners wait in place.
//
// Two variants are provided:
//
//   - NewExclusiveLockManager: every lock is exclusive; a read lock request
//     is treated exactly like a write lock request.
//   - NewSharedLockManager: shared/exclusive semantics; readers may own a
//     key together, a writer owns it alone.
//
// Granting:
//
//	ReadLock and WriteLock return true when the lock is granted immediately.
//	When they return false the request stays queued; once releases of
//	earlier requests have made the waiting transaction an owner of every
//	key it is still waiting for, the Ready callback supplied at
//	construction fires with that transaction. The locking scheduler uses
//	the callback to move single-key transactions that chose to wait into
//	its ready list.
//
// Invariants:
//
//   - For any key, the owners are never a write request together with any
//     other request (mutual exclusion).
//   - Release removes exactly one previously issued request. Releasing a
//     key the transaction holds no request for indicates a scheduler bug
//     and panics.
//
// Thread Safety:
//
//	The lock managers are NOT thread-safe. All admission and release
//	decisions are made on the engine's single scheduler goroutine, so the
//	tables need no internal locking; this is a deliberate part of the
//	engine's concurrency design, not an omission.
package lockmgr
