package engine

import (
	"sort"
	"sync"

	"github.com/ValentinKolb/dTxn/lib/txn"
)

// runMVCC dispatches every request straight to the workers. Reads hit
// the version chains at the transaction's snapshot timestamp and never
// block; the only coordination happens at commit, per written key.
func (p *TxnProcessor) runMVCC() {
	for t := range p.requests.Recv() {
		p.workers.Submit(func() {
			p.mvccRun(t)
		})
	}
	p.awaitDrain()
}

func (p *TxnProcessor) mvccRun(t *txn.Transaction) {
	p.execute(t)

	if t.Status() == txn.StatusCompletedCommit {
		p.mvccApply(t)
		t.SetStatus(txn.StatusCommitted)
		p.mCommitted.Inc()
		p.maybePrune()
	} else {
		t.SetStatus(txn.StatusAborted)
		p.mAborted.Inc()
	}

	p.snapshots.Release(t.ID)
	p.publish(t)
}

// mvccApply appends the transaction's writes as new versions. All
// written keys are locked in sorted order before the commit timestamp
// is drawn, so for any single key commit timestamps arrive strictly
// increasing; writers of disjoint key sets proceed independently.
func (p *TxnProcessor) mvccApply(t *txn.Transaction) {
	keys := make([]txn.Key, 0, len(t.WriteBuffer()))
	for key := range t.WriteBuffer() {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	locks := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		mu, _ := p.keyLocks.LoadOrStore(key, &sync.Mutex{})
		mu.Lock()
		locks = append(locks, mu)
	}

	ts := p.commits.begin()
	for _, key := range keys {
		p.store.Write(key, t.WriteBuffer()[key], t.ID, ts)
	}
	p.advanceVisible(p.commits.end(ts))

	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].Unlock()
	}
}

// maybePrune trims version chains every GCInterval commits, keeping
// everything the oldest live snapshot can still reach.
func (p *TxnProcessor) maybePrune() {
	if p.opts.GCInterval <= 0 {
		return
	}
	if p.commitsSeenGC.Add(1)%uint64(p.opts.GCInterval) != 0 {
		return
	}
	oldest, ok := p.snapshots.Oldest()
	if !ok {
		oldest = p.visible.Load()
	}
	p.store.Prune(oldest)
}
