package lockmgr

import (
	"fmt"

	"github.com/ValentinKolb/dTxn/lib/txn"
)

// request is one entry in a key's lock queue.
type request struct {
	t    *txn.Transaction
	mode Mode
}

type lockMgrImpl struct {
	// exclusiveOnly coerces every read request to a write request.
	exclusiveOnly bool

	// table maps each key to its FIFO request queue. The compatible prefix
	// of a queue owns the lock.
	table map[txn.Key][]request

	// waits counts, per blocked transaction, how many requested locks it
	// has not yet been granted.
	waits map[*txn.Transaction]int

	ready Ready
}

// NewExclusiveLockManager creates a lock manager where all locks are
// exclusive, including read locks.
func NewExclusiveLockManager(ready Ready) ILockManager {
	return &lockMgrImpl{
		exclusiveOnly: true,
		table:         make(map[txn.Key][]request),
		waits:         make(map[*txn.Transaction]int),
		ready:         ready,
	}
}

// NewSharedLockManager creates a lock manager with shared read locks and
// exclusive write locks.
func NewSharedLockManager(ready Ready) ILockManager {
	return &lockMgrImpl{
		table: make(map[txn.Key][]request),
		waits: make(map[*txn.Transaction]int),
		ready: ready,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (m *lockMgrImpl) ReadLock(t *txn.Transaction, key txn.Key) bool {
	if m.exclusiveOnly {
		return m.lock(t, key, ModeWrite)
	}
	return m.lock(t, key, ModeRead)
}

func (m *lockMgrImpl) WriteLock(t *txn.Transaction, key txn.Key) bool {
	return m.lock(t, key, ModeWrite)
}

func (m *lockMgrImpl) Release(t *txn.Transaction, key txn.Key) {
	q := m.table[key]

	idx := -1
	for i, r := range q {
		if r.t == t {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("lockmgr: txn %d released key %q without holding a request", t.ID, key))
	}

	ownersBefore := ownerCount(q)

	q = append(q[:idx], q[idx+1:]...)
	if len(q) == 0 {
		delete(m.table, key)
	} else {
		m.table[key] = q
	}

	if idx >= ownersBefore {
		// t was still waiting on this key (deadlock-avoidance releases
		// include the request that failed to acquire). Drop its wait
		// without notifying t itself, but a withdrawn writer can bridge
		// reader owners and queued readers, extending the owner prefix.
		m.decWait(t, false)
		for i := ownersBefore; i < ownerCount(q); i++ {
			m.decWait(q[i].t, true)
		}
		return
	}

	// t was an owner; every request that just entered the owner prefix has
	// one fewer lock to wait for.
	for i := 0; i < ownerCount(q); i++ {
		if i >= ownersBefore-1 {
			m.decWait(q[i].t, true)
		}
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (m *lockMgrImpl) lock(t *txn.Transaction, key txn.Key, mode Mode) bool {
	q := m.table[key]

	granted := false
	switch mode {
	case ModeWrite:
		granted = len(q) == 0
	case ModeRead:
		// Shared locks are granted as long as no writer is queued ahead.
		granted = true
		for _, r := range q {
			if r.mode == ModeWrite {
				granted = false
				break
			}
		}
	}

	m.table[key] = append(q, request{t: t, mode: mode})

	if !granted {
		m.waits[t]++
	}
	return granted
}

// decWait decrements t's outstanding-lock counter. When the counter reaches
// zero and notify is set, t has acquired everything it waited for and the
// Ready callback fires.
func (m *lockMgrImpl) decWait(t *txn.Transaction, notify bool) {
	if m.waits[t] <= 0 {
		// The granted request never blocked, nothing to account for.
		delete(m.waits, t)
		return
	}

	m.waits[t]--
	if m.waits[t] == 0 {
		delete(m.waits, t)
		if notify && m.ready != nil {
			m.ready(t)
		}
	}
}

// ownerCount returns the length of the queue prefix currently holding the
// lock: one writer, or the run of leading readers.
func ownerCount(q []request) int {
	if len(q) == 0 {
		return 0
	}
	if q[0].mode == ModeWrite {
		return 1
	}
	n := 0
	for _, r := range q {
		if r.mode != ModeRead {
			break
		}
		n++
	}
	return n
}
