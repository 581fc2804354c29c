// Package engine implements the transaction processor: admission,
// scheduling, execution and commit of transactions under a selectable
// concurrency-control protocol.
//
// A TxnProcessor owns the storage matching its mode (single-version for
// serial/locking/optimistic, multi-version for MVCC), the lock tables for
// the locking modes, the worker pool executing transaction logic, and the
// lock-free stage queues connecting the pipeline:
//
//	client ──Submit──> requests ──> scheduler ──> workers ──> completed
//	                                    │                          │
//	client <──Result── results <────────┴──────────────────────────┘
//
// Exactly one scheduler goroutine runs per processor; it is the only
// writer of lock-table admission decisions and (for the serial, locking
// and serially validated optimistic modes) of terminal commit/abort
// status. Workers only populate a transaction's reads and write buffer and
// set the CompletedCommit/CompletedAbort status; under the parallel
// optimistic and MVCC modes they additionally run the validation and the
// version append, since serializing those through the scheduler would
// defeat the protocols.
//
// Modes:
//
//   - ModeSerial: one transaction at a time on the scheduler goroutine.
//     Trivially serializable; the correctness baseline for the others.
//   - ModeLocking / ModeLockingExclusiveOnly: strict two-phase locking.
//     All locks are acquired in sorted key order before execution and
//     released only after the commit/abort decision. A transaction that
//     blocks while touching more than one key releases everything and is
//     restarted with a fresh id (deadlock avoidance by abort); a
//     single-key transaction waits in place, since it can never be part
//     of a wait cycle.
//   - ModeOCC: execute without locks, then validate on the scheduler
//     goroutine that no key of the transaction was committed to after its
//     start timestamp; on conflict the transaction restarts with a fresh
//     id and timestamp.
//   - ModeParallelOCC: same structure, but validation runs on the workers
//     against the set of concurrently validating transactions (the active
//     set), so independent transactions never serialize behind one
//     validation mutex.
//   - ModeMVCC: snapshot reads against versioned storage, no locks during
//     execution; commit appends new versions under per-key locks with a
//     commit timestamp greater than any issued before. Snapshot
//     isolation, not serializability.
//
// Error Taxonomy:
//
//   - Protocol violations (a transaction observed after execution with
//     neither completion status, a lock released without being held) are
//     bugs in the engine and panic.
//   - Contention aborts (optimistic validation failure, locking
//     deadlock-avoidance) are retried transparently; the client only sees
//     the final committed result.
//   - Logical aborts (the transaction's own Abort call) surface as a
//     terminal Aborted result and are never retried by the engine.
//
// Every submitted transaction yields exactly one Result. Close should be
// called after the expected results have been polled: transactions whose
// automatic restart races with Close are dropped.
package engine
