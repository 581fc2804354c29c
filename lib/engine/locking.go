package engine

import (
	"github.com/ValentinKolb/dTxn/lib/txn"
)

// runLocking is the strict 2PL scheduler for ModeLocking and
// ModeLockingExclusiveOnly. Admission, lock release and the
// commit/abort decision all happen here; only transaction logic runs on
// the workers. That single-goroutine discipline is what lets the lock
// manager go without internal locking.
func (p *TxnProcessor) runLocking() {
	reqCh := p.requests.Recv()
	compCh := p.completed.Recv()

	for {
		select {
		case t, ok := <-reqCh:
			if !ok {
				reqCh = nil
				break
			}
			p.lockAdmit(t)
		case t, ok := <-compCh:
			if !ok {
				return
			}
			p.lockFinish(t)
		}

		p.dispatchReady()

		if reqCh == nil && p.pending.Load() == 0 {
			return
		}
	}
}

// lockKeys returns the keys a transaction locks, split by mode. A key
// in both sets is only write-locked, otherwise the transaction would
// block on its own shared lock.
func lockKeys(t *txn.Transaction) (reads, writes []txn.Key) {
	writes = t.SortedWriteSet()
	for _, key := range t.SortedReadSet() {
		if !t.InWriteSet(key) {
			reads = append(reads, key)
		}
	}
	return reads, writes
}

// lockAdmit requests every lock of t in sorted key order. If all are
// granted immediately the transaction is ready to execute. If it blocks
// while touching more than one key, every request placed so far is
// withdrawn and the transaction restarts under a fresh id, so it cannot
// take part in a wait cycle. A single-key transaction waits in place:
// with only one lock it can never deadlock.
func (p *TxnProcessor) lockAdmit(t *txn.Transaction) {
	readKeys, writeKeys := lockKeys(t)

	blocked := false
	var placed []txn.Key
	for _, key := range readKeys {
		granted := p.lm.ReadLock(t, key)
		placed = append(placed, key)
		if !granted {
			blocked = true
			break
		}
	}
	if !blocked {
		for _, key := range writeKeys {
			granted := p.lm.WriteLock(t, key)
			placed = append(placed, key)
			if !granted {
				blocked = true
				break
			}
		}
	}

	switch {
	case !blocked:
		p.ready = append(p.ready, t)
	case t.KeyCount() > 1:
		for _, key := range placed {
			p.lm.Release(t, key)
		}
		p.restart(t)
	default:
		// Waiting in place; onLocksGranted fires once the lock is
		// handed over.
	}
}

// onLocksGranted is the lock manager's Ready callback: the last pending
// lock of t was just granted during a Release on this goroutine.
func (p *TxnProcessor) onLocksGranted(t *txn.Transaction) {
	p.ready = append(p.ready, t)
}

// dispatchReady hands every lock-holding transaction to the worker
// pool. Workers run the logic and push to the completed queue; they
// never touch the lock tables.
func (p *TxnProcessor) dispatchReady() {
	for len(p.ready) > 0 {
		t := p.ready[0]
		p.ready = p.ready[1:]
		p.workers.Submit(func() {
			p.execute(t)
			p.completed.Push(t)
		})
	}
}

// lockFinish applies or discards a completed transaction's writes and
// only then releases its locks, so a waiter granted by the release
// observes the committed state.
func (p *TxnProcessor) lockFinish(t *txn.Transaction) {
	p.finalize(t)

	readKeys, writeKeys := lockKeys(t)
	for _, key := range readKeys {
		p.lm.Release(t, key)
	}
	for _, key := range writeKeys {
		p.lm.Release(t, key)
	}

	p.publish(t)
}
