package engine

import (
	"sync"

	"github.com/ValentinKolb/dTxn/lib/txn"
)

// ----------------------------------------
// Active set
// ----------------------------------------

// activeSet tracks the transactions currently validating or applying.
// Join atomically snapshots the write keys of every present member, so
// two conflicting transactions can never both miss each other: whichever
// joins second sees the first.
type activeSet struct {
	mu      sync.Mutex
	members map[uint64][]txn.Key
}

func newActiveSet() *activeSet {
	return &activeSet{members: make(map[uint64][]txn.Key)}
}

// Join adds a member and returns the write-key sets of everyone already
// present. The returned slices are copies owned by the caller; they stay
// valid even if a peer leaves, commits or restarts afterwards.
func (s *activeSet) Join(id uint64, writeKeys []txn.Key) [][]txn.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([][]txn.Key, 0, len(s.members))
	for _, keys := range s.members {
		peers = append(peers, keys)
	}
	s.members[id] = writeKeys
	return peers
}

func (s *activeSet) Leave(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, id)
}

// ----------------------------------------
// Scheduler
// ----------------------------------------

// runParallelOCC dispatches every request straight to the workers;
// validation happens there against the active set, so disjoint
// transactions validate concurrently instead of queueing behind the
// scheduler.
func (p *TxnProcessor) runParallelOCC() {
	for t := range p.requests.Recv() {
		p.workers.Submit(func() {
			p.poccRun(t)
		})
	}
	p.awaitDrain()
}

// poccRun executes, validates and finalizes a transaction on a worker
// goroutine. Validation has two parts: the backward check against
// storage timestamps catches every transaction that finished before we
// joined the active set, and the membership check catches everyone still
// in flight. A member that sees a conflicting peer aborts itself and
// restarts; the peer, having joined first, cannot have seen us and may
// commit, so exactly one side of every conflict survives.
func (p *TxnProcessor) poccRun(t *txn.Transaction) {
	p.execute(t)

	if t.Status() == txn.StatusCompletedAbort {
		t.SetStatus(txn.StatusAborted)
		p.mAborted.Inc()
		p.publish(t)
		return
	}

	writeKeys := make([]txn.Key, 0, len(t.WriteBuffer()))
	for key := range t.WriteBuffer() {
		writeKeys = append(writeKeys, key)
	}
	peers := p.active.Join(t.ID, writeKeys)

	valid := true
	for _, key := range t.AllKeys() {
		if p.store.Timestamp(key) > t.StartTS {
			valid = false
			break
		}
	}
	if valid {
	scan:
		for _, peerKeys := range peers {
			for _, key := range peerKeys {
				if t.InReadSet(key) || t.InWriteSet(key) {
					valid = false
					break scan
				}
			}
		}
	}

	if !valid {
		p.active.Leave(t.ID)
		p.restart(t)
		return
	}

	p.applyWrites(t)
	p.active.Leave(t.ID)
	t.SetStatus(txn.StatusCommitted)
	p.mCommitted.Inc()
	p.publish(t)
}
