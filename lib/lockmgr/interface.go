package lockmgr

import (
	"github.com/ValentinKolb/dTxn/lib/txn"
)

// Mode is the requested lock mode.
type Mode int

const (
	// ModeRead is a shared lock request.
	ModeRead Mode = iota
	// ModeWrite is an exclusive lock request.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "Read"
	case ModeWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// Ready is invoked by the lock manager when a previously blocked
// transaction has acquired the last lock it was waiting for. It runs on the
// goroutine calling Release.
type Ready func(t *txn.Transaction)

// ILockManager defines the interface for the per-key lock tables.
type ILockManager interface {
	// ReadLock requests a shared lock on key for t.
	// Returns true if the lock was granted immediately; otherwise the
	// request stays queued behind the current owners.
	ReadLock(t *txn.Transaction, key txn.Key) bool

	// WriteLock requests an exclusive lock on key for t.
	// Returns true if the lock was granted immediately; otherwise the
	// request stays queued behind the current owners.
	WriteLock(t *txn.Transaction, key txn.Key) bool

	// Release removes t's request for key, granting the lock to the next
	// compatible waiters. Releasing a key t holds no request for panics.
	Release(t *txn.Transaction, key txn.Key)
}
