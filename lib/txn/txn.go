package txn

import (
	"fmt"
	"sort"
)

// --------------------------------------------------------------------------
// Core Types
// --------------------------------------------------------------------------

// Key identifies a record in storage. Keys are totally ordered by the
// natural string ordering; the locking scheduler relies on this to acquire
// locks in a fixed order.
type Key = string

// Value is an opaque payload stored under a Key.
type Value = []byte

// Logic is the application callback embedded in a transaction. It may only
// interact with the transaction itself: Read for declared reads, Write for
// buffered writes, and Commit/Abort to finish.
type Logic func(t *Transaction)

// Status describes where a transaction is in its lifecycle.
type Status int

const (
	// StatusIncomplete is the initial status of every transaction.
	StatusIncomplete Status = iota
	// StatusCompletedCommit is set by the logic callback to request a commit.
	StatusCompletedCommit
	// StatusCompletedAbort is set by the logic callback to request an abort.
	StatusCompletedAbort
	// StatusCommitted is the terminal status of a committed transaction (engine only).
	StatusCommitted
	// StatusAborted is the terminal status of an aborted transaction (engine only).
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "Incomplete"
	case StatusCompletedCommit:
		return "CompletedCommit"
	case StatusCompletedAbort:
		return "CompletedAbort"
	case StatusCommitted:
		return "Committed"
	case StatusAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal returns whether the status is one of the two client-visible end
// states.
func (s Status) Terminal() bool {
	return s == StatusCommitted || s == StatusAborted
}

// --------------------------------------------------------------------------
// Transaction
// --------------------------------------------------------------------------

// Transaction is the unit of work scheduled by the engine.
//
// Thread-safety: a transaction is owned by exactly one goroutine at a time
// (client until submission, then scheduler, then at most one worker). None
// of its methods are safe for concurrent use on the same instance.
type Transaction struct {
	// ID is the unique, monotonically increasing id assigned at admission.
	// The engine assigns a fresh ID when it internally restarts a
	// transaction after a contention abort.
	ID uint64

	// StartTS is the logical time at which execution began. Under OCC it is
	// the validation baseline, under MVCC the snapshot timestamp. Zero for
	// protocols that do not use timestamps.
	StartTS uint64

	// Reads holds the values read for the declared key sets, populated by
	// the engine before the logic callback runs. Keys absent from storage
	// are absent here too.
	Reads map[Key]Value

	readSet  map[Key]struct{}
	writeSet map[Key]struct{}
	writes   map[Key]Value
	status   Status
	logic    Logic

	// Restarts counts how often the engine restarted this transaction after
	// a contention abort. Diagnostic only.
	Restarts int
}

// New creates a transaction with fixed read and write sets and the given
// logic callback. Duplicate keys within a set are collapsed.
func New(readSet, writeSet []Key, logic Logic) *Transaction {
	t := &Transaction{
		Reads:    make(map[Key]Value),
		readSet:  make(map[Key]struct{}, len(readSet)),
		writeSet: make(map[Key]struct{}, len(writeSet)),
		writes:   make(map[Key]Value),
		status:   StatusIncomplete,
		logic:    logic,
	}
	for _, k := range readSet {
		t.readSet[k] = struct{}{}
	}
	for _, k := range writeSet {
		t.writeSet[k] = struct{}{}
	}
	return t
}

// --------------------------------------------------------------------------
// Callback-Facing Methods
// --------------------------------------------------------------------------

// Read returns the value read for key during the engine's read phase. The
// boolean indicates whether the key existed in storage.
func (t *Transaction) Read(key Key) (Value, bool) {
	v, ok := t.Reads[key]
	return v, ok
}

// Write buffers a write. The key must be part of the declared write set;
// writing an undeclared key is a programming error.
func (t *Transaction) Write(key Key, value Value) {
	if _, ok := t.writeSet[key]; !ok {
		panic(fmt.Sprintf("txn %d: write to undeclared key %q", t.ID, key))
	}
	t.writes[key] = value
}

// Commit finishes the transaction with a commit request.
func (t *Transaction) Commit() {
	t.complete(StatusCompletedCommit)
}

// Abort finishes the transaction with an abort request. Aborts requested by
// the logic are terminal: the engine never retries them.
func (t *Transaction) Abort() {
	t.complete(StatusCompletedAbort)
}

func (t *Transaction) complete(s Status) {
	if t.status != StatusIncomplete {
		panic(fmt.Sprintf("txn %d: illegal status transition %s -> %s", t.ID, t.status, s))
	}
	t.status = s
}

// --------------------------------------------------------------------------
// Engine-Facing Methods
// --------------------------------------------------------------------------

// Status returns the current lifecycle status.
func (t *Transaction) Status() Status {
	return t.status
}

// SetStatus applies the engine's terminal commit/abort decision. Only the
// transitions CompletedCommit -> Committed and CompletedAbort -> Aborted
// are legal.
func (t *Transaction) SetStatus(s Status) {
	legal := (t.status == StatusCompletedCommit && s == StatusCommitted) ||
		(t.status == StatusCompletedAbort && s == StatusAborted)
	if !legal {
		panic(fmt.Sprintf("txn %d: illegal status transition %s -> %s", t.ID, t.status, s))
	}
	t.status = s
}

// Run invokes the logic callback and verifies it finished the transaction.
func (t *Transaction) Run() {
	t.logic(t)
	if t.status != StatusCompletedCommit && t.status != StatusCompletedAbort {
		panic(fmt.Sprintf("txn %d: logic finished with invalid status %s", t.ID, t.status))
	}
}

// InReadSet reports whether key is part of the declared read set.
func (t *Transaction) InReadSet(key Key) bool {
	_, ok := t.readSet[key]
	return ok
}

// InWriteSet reports whether key is part of the declared write set.
func (t *Transaction) InWriteSet(key Key) bool {
	_, ok := t.writeSet[key]
	return ok
}

// KeyCount returns the combined size of read and write set. The locking
// scheduler's deadlock-avoidance policy branches on this.
func (t *Transaction) KeyCount() int {
	return len(t.readSet) + len(t.writeSet)
}

// SortedReadSet returns the read-set keys in ascending order.
func (t *Transaction) SortedReadSet() []Key {
	return sortedKeys(t.readSet)
}

// SortedWriteSet returns the write-set keys in ascending order.
func (t *Transaction) SortedWriteSet() []Key {
	return sortedKeys(t.writeSet)
}

// AllKeys returns the union of read and write set in ascending order.
func (t *Transaction) AllKeys() []Key {
	union := make(map[Key]struct{}, len(t.readSet)+len(t.writeSet))
	for k := range t.readSet {
		union[k] = struct{}{}
	}
	for k := range t.writeSet {
		union[k] = struct{}{}
	}
	return sortedKeys(union)
}

// WriteBuffer exposes the buffered writes for the engine's apply phase.
func (t *Transaction) WriteBuffer() map[Key]Value {
	return t.writes
}

// WritesOverlap reports whether the buffered writes of t intersect the
// read or write set of other. Used by optimistic validation.
func (t *Transaction) WritesOverlap(other *Transaction) bool {
	for k := range t.writes {
		if other.InReadSet(k) || other.InWriteSet(k) {
			return true
		}
	}
	return false
}

// Reset prepares the transaction for a restart after a contention abort:
// reads and buffered writes are cleared and the status returns to
// Incomplete. The caller assigns the fresh id and timestamp.
func (t *Transaction) Reset() {
	t.Reads = make(map[Key]Value)
	t.writes = make(map[Key]Value)
	t.status = StatusIncomplete
	t.StartTS = 0
	t.Restarts++
}

func sortedKeys(set map[Key]struct{}) []Key {
	keys := make([]Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
