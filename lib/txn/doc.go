// Package txn defines the transaction unit processed by the dTxn engine.
//
// A transaction declares up front which keys it will read (the read set) and
// which keys it may write (the write set), plus an opaque logic callback that
// implements the actual application behavior. The engine reads all declared
// keys into the transaction before invoking the callback; the callback then
// inspects those reads, buffers its writes, and finishes the transaction with
// either Commit or Abort. Buffered writes only reach storage if the engine
// later decides to commit the transaction.
//
// Status Lifecycle:
//
//	StatusIncomplete
//	    │ (logic callback)
//	    ├──> StatusCompletedCommit ──> StatusCommitted  (engine applies writes)
//	    └──> StatusCompletedAbort  ──> StatusAborted    (engine discards writes)
//
// No other transition is legal. The engine treats a transaction that finished
// executing without reaching one of the Completed states as a fatal bug, not
// as a runtime condition.
//
// Determinism Requirement:
//
//	Under the optimistic and multi-version protocols the engine may restart a
//	transaction: it is assigned a fresh id and timestamp, its reads are
//	re-populated and the logic callback runs again. The callback must therefore
//	be deterministic given identical reads and must never touch storage
//	directly - all storage access goes through the engine.
//
// Ownership:
//
//	The engine exclusively owns a transaction's identity (id, timestamps) and
//	its terminal status. A worker executing the transaction may mutate the
//	reads, the write buffer and the Completed status, but must not retain the
//	transaction after handing it back to the scheduler.
package txn
