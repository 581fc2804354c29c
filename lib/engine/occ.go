package engine

import (
	"github.com/ValentinKolb/dTxn/lib/txn"
)

// runOCC is the optimistic scheduler with serial validation. Execution
// runs unlocked on the workers; validation, commit and restart all run
// here, so at most one transaction validates at a time and validation
// never races a concurrent apply.
func (p *TxnProcessor) runOCC() {
	reqCh := p.requests.Recv()
	compCh := p.completed.Recv()

	for {
		select {
		case t, ok := <-reqCh:
			if !ok {
				reqCh = nil
				break
			}
			p.workers.Submit(func() {
				p.execute(t)
				p.completed.Push(t)
			})
		case t, ok := <-compCh:
			if !ok {
				return
			}
			p.occValidate(t)
		}

		if reqCh == nil && p.pending.Load() == 0 {
			return
		}
	}
}

// occValidate commits t if no key it touched was written after its
// start timestamp, and restarts it under a fresh id and timestamp
// otherwise. Logical aborts pass straight through, they can never have
// seen stale data they acted on.
func (p *TxnProcessor) occValidate(t *txn.Transaction) {
	if t.Status() == txn.StatusCompletedAbort {
		t.SetStatus(txn.StatusAborted)
		p.mAborted.Inc()
		p.publish(t)
		return
	}

	for _, key := range t.AllKeys() {
		if p.store.Timestamp(key) > t.StartTS {
			p.restart(t)
			return
		}
	}

	p.applyWrites(t)
	t.SetStatus(txn.StatusCommitted)
	p.mCommitted.Inc()
	p.publish(t)
}
