package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dTxn/lib/lockmgr"
	"github.com/ValentinKolb/dTxn/lib/logger"
	"github.com/ValentinKolb/dTxn/lib/pool"
	"github.com/ValentinKolb/dTxn/lib/queue"
	"github.com/ValentinKolb/dTxn/lib/storage"
	"github.com/ValentinKolb/dTxn/lib/storage/mvstore"
	"github.com/ValentinKolb/dTxn/lib/storage/svstore"
	"github.com/ValentinKolb/dTxn/lib/txn"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// ----------------------------------------
// Options
// ----------------------------------------

// Options configures a TxnProcessor.
type Options struct {
	// Workers is the size of the execution pool. Values <= 0 fall back
	// to runtime.NumCPU().
	Workers int
	// GCInterval is the number of MVCC commits between version-chain
	// prune passes. Values <= 0 disable pruning.
	GCInterval int
}

// DefaultOptions returns the options used when NewTxnProcessor is
// called with nil.
func DefaultOptions() *Options {
	return &Options{
		Workers:    runtime.NumCPU(),
		GCInterval: 128,
	}
}

// ----------------------------------------
// Processor
// ----------------------------------------

// TxnProcessor schedules, executes and commits transactions under the
// concurrency-control protocol selected by its Mode. Submit and Result
// are safe for concurrent use by any number of goroutines.
type TxnProcessor struct {
	mode Mode
	opts *Options

	store storage.IStorage
	lm    lockmgr.ILockManager

	requests  *queue.MPSC[txn.Transaction]
	completed *queue.MPSC[txn.Transaction]
	results   *queue.MPSC[txn.Transaction]
	workers   *pool.Pool

	// commits issues commit timestamps; visible trails them along the
	// gap-free prefix of fully applied commits, so snapshots and
	// optimistic start timestamps never observe half of a commit.
	commits *commitTracker
	visible atomic.Uint64

	nextID  atomic.Uint64
	pending atomic.Int64
	closed  atomic.Bool

	schedulerDone chan struct{}

	// ready holds lock-granted transactions awaiting dispatch; only the
	// scheduler goroutine touches it (locking modes).
	ready []*txn.Transaction

	// active is the set of concurrently validating transactions
	// (parallel OCC only).
	active *activeSet

	// snapshots tracks live MVCC read timestamps for pruning; keyLocks
	// serializes version appends per key (MVCC only).
	snapshots     *snapshotTracker
	keyLocks      *xsync.MapOf[txn.Key, *sync.Mutex]
	commitsSeenGC atomic.Uint64

	log *logger.Logger

	mCommitted *metrics.Counter
	mAborted   *metrics.Counter
	mRestarted *metrics.Counter
}

// NewTxnProcessor creates a processor for the given mode and starts its
// scheduler goroutine and worker pool. Pass nil opts for defaults.
func NewTxnProcessor(mode Mode, opts *Options) *TxnProcessor {
	if opts == nil {
		opts = DefaultOptions()
	}

	p := &TxnProcessor{
		mode:          mode,
		opts:          opts,
		requests:      queue.NewMPSC[txn.Transaction](),
		completed:     queue.NewMPSC[txn.Transaction](),
		results:       queue.NewMPSC[txn.Transaction](),
		workers:       pool.NewPool(opts.Workers),
		commits:       newCommitTracker(),
		schedulerDone: make(chan struct{}),
		log:           logger.GetLogger("engine"),
		mCommitted:    metrics.GetOrCreateCounter(fmt.Sprintf(`dtxn_txns_committed_total{mode=%q}`, mode)),
		mAborted:      metrics.GetOrCreateCounter(fmt.Sprintf(`dtxn_txns_aborted_total{mode=%q}`, mode)),
		mRestarted:    metrics.GetOrCreateCounter(fmt.Sprintf(`dtxn_txns_restarted_total{mode=%q}`, mode)),
	}

	switch mode {
	case ModeMVCC:
		p.store = mvstore.NewMultiVersionStore()
		p.snapshots = newSnapshotTracker()
		p.keyLocks = xsync.NewMapOf[txn.Key, *sync.Mutex]()
	default:
		p.store = svstore.NewSingleVersionStore()
	}
	p.store.Init()

	switch mode {
	case ModeLockingExclusiveOnly:
		p.lm = lockmgr.NewExclusiveLockManager(p.onLocksGranted)
	case ModeLocking:
		p.lm = lockmgr.NewSharedLockManager(p.onLocksGranted)
	case ModeParallelOCC:
		p.active = newActiveSet()
	}

	go p.runScheduler()

	p.log.Debugf("txn processor started (mode=%s workers=%d)", mode, opts.Workers)
	return p
}

// Mode returns the processor's concurrency-control mode.
func (p *TxnProcessor) Mode() Mode {
	return p.mode
}

// Stats reports the cumulative commit, abort and restart counts of the
// mode's metrics counters. The counters are shared by every processor of
// the same mode in the process, so callers interested in one workload
// should diff two readings.
func (p *TxnProcessor) Stats() (committed, aborted, restarted uint64) {
	return p.mCommitted.Get(), p.mAborted.Get(), p.mRestarted.Get()
}

// Submit hands a transaction to the scheduler and returns its assigned
// id, or 0 if the processor is closed. The caller must not touch t again
// until it comes back through Result.
func (p *TxnProcessor) Submit(t *txn.Transaction) uint64 {
	if p.closed.Load() {
		return 0
	}

	t.ID = p.nextID.Add(1)
	if p.mode == ModeMVCC {
		// Snapshot at admission: the transaction sees every commit
		// fully applied by now and nothing issued later.
		t.StartTS = p.visible.Load()
		p.snapshots.Register(t.ID, t.StartTS)
	}

	p.pending.Add(1)
	if !p.requests.Push(t) {
		p.pending.Add(-1)
		if p.mode == ModeMVCC {
			p.snapshots.Release(t.ID)
		}
		return 0
	}
	return t.ID
}

// Result blocks until a transaction reaches a terminal status and
// returns it, or nil once the processor is closed and drained. Results
// arrive in completion order, not submission order.
func (p *TxnProcessor) Result() *txn.Transaction {
	return <-p.results.Recv()
}

// Close stops admission, waits for the scheduler to drain every pending
// transaction, and tears down the worker pool and queues. Idempotent.
func (p *TxnProcessor) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.requests.Close()
	<-p.schedulerDone
	p.workers.Close()
	p.completed.Close()
	p.results.Close()
	p.log.Debugf("txn processor closed (mode=%s)", p.mode)
}

// ----------------------------------------
// Scheduler entry
// ----------------------------------------

func (p *TxnProcessor) runScheduler() {
	defer close(p.schedulerDone)
	switch p.mode {
	case ModeSerial:
		p.runSerial()
	case ModeLocking, ModeLockingExclusiveOnly:
		p.runLocking()
	case ModeOCC:
		p.runOCC()
	case ModeParallelOCC:
		p.runParallelOCC()
	case ModeMVCC:
		p.runMVCC()
	default:
		p.log.Panicf("unknown scheduler mode %d", int(p.mode))
	}
}

// ----------------------------------------
// Shared helpers
// ----------------------------------------

// execute populates the transaction's reads from storage and runs its
// logic. Runs on a worker goroutine (on the scheduler goroutine for
// ModeSerial only).
func (p *TxnProcessor) execute(t *txn.Transaction) {
	readTS := ^uint64(0)
	switch p.mode {
	case ModeMVCC:
		readTS = t.StartTS
	case ModeOCC, ModeParallelOCC:
		// The watermark, not the raw clock: a clock value could name a
		// commit whose apply loop is still running, and validating with
		// Timestamp(key) <= StartTS would then accept torn reads.
		t.StartTS = p.visible.Load()
	}

	for _, key := range t.AllKeys() {
		if v, ok := p.store.Read(key, readTS); ok {
			t.Reads[key] = v
		}
	}
	t.Run()
}

// applyWrites draws a commit timestamp, installs the transaction's
// write buffer into storage, and lets the watermark advance once the
// tracker confirms no older commit is still applying.
func (p *TxnProcessor) applyWrites(t *txn.Transaction) {
	ts := p.commits.begin()
	for key, value := range t.WriteBuffer() {
		p.store.Write(key, value, t.ID, ts)
	}
	p.advanceVisible(p.commits.end(ts))
}

func (p *TxnProcessor) advanceVisible(ts uint64) {
	for {
		cur := p.visible.Load()
		if cur >= ts || p.visible.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// finalize turns a completed transaction terminal: committed writes are
// applied at a fresh timestamp, aborts are discarded. Single-version
// modes only; must run on the goroutine holding the commit decision.
func (p *TxnProcessor) finalize(t *txn.Transaction) {
	switch t.Status() {
	case txn.StatusCompletedCommit:
		p.applyWrites(t)
		t.SetStatus(txn.StatusCommitted)
		p.mCommitted.Inc()
	case txn.StatusCompletedAbort:
		t.SetStatus(txn.StatusAborted)
		p.mAborted.Inc()
	default:
		p.log.Panicf("completed txn %d has status %s", t.ID, t.Status())
	}
}

// publish delivers a terminal transaction to the result queue.
func (p *TxnProcessor) publish(t *txn.Transaction) {
	p.results.Push(t)
	p.pending.Add(-1)
}

// restart clears a contention-aborted transaction's execution state and
// requeues it under a fresh id. If the processor is closing the
// transaction is dropped instead.
func (p *TxnProcessor) restart(t *txn.Transaction) {
	t.Reset()
	t.ID = p.nextID.Add(1)
	p.mRestarted.Inc()
	if !p.requests.Push(t) {
		p.pending.Add(-1)
		p.log.Warningf("dropping restarted txn %d: processor closing", t.ID)
	}
}

// awaitDrain spins until every admitted transaction has been published.
// Used by the worker-finalizing modes where the scheduler loop has no
// completion channel to block on.
func (p *TxnProcessor) awaitDrain() {
	for p.pending.Load() > 0 {
		time.Sleep(50 * time.Microsecond)
	}
}
