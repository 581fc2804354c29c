package engine

import (
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/ValentinKolb/dTxn/lib/txn"
)

// ----------------------------------------
// Helpers
// ----------------------------------------

func encodeInt(v int) txn.Value {
	return txn.Value(strconv.Itoa(v))
}

func decodeInt(v txn.Value) int {
	n, _ := strconv.Atoi(string(v))
	return n
}

// awaitResults polls n terminal transactions from the processor.
func awaitResults(t *testing.T, p *TxnProcessor, n int) []*txn.Transaction {
	t.Helper()
	out := make([]*txn.Transaction, 0, n)
	for len(out) < n {
		res := p.Result()
		if res == nil {
			t.Fatalf("processor drained after %d of %d results", len(out), n)
		}
		if !res.Status().Terminal() {
			t.Fatalf("published txn %d has non-terminal status %s", res.ID, res.Status())
		}
		out = append(out, res)
	}
	return out
}

// readKey submits a read-only transaction and returns what it saw. Only
// valid while no other results are pending.
func readKey(t *testing.T, p *TxnProcessor, key txn.Key) (txn.Value, bool) {
	t.Helper()
	p.Submit(txn.New([]txn.Key{key}, nil, func(tx *txn.Transaction) {
		tx.Commit()
	}))
	res := p.Result()
	if res == nil {
		t.Fatal("processor drained while reading")
	}
	v, ok := res.Reads[key]
	return v, ok
}

func writeKey(t *testing.T, p *TxnProcessor, key txn.Key, value txn.Value) {
	t.Helper()
	p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
		tx.Write(key, value)
		tx.Commit()
	}))
	if res := p.Result(); res == nil || res.Status() != txn.StatusCommitted {
		t.Fatalf("setup write of %q did not commit", key)
	}
}

func forAllModes(t *testing.T, f func(t *testing.T, mode Mode)) {
	for _, mode := range AllModes() {
		t.Run(mode.String(), func(t *testing.T) {
			f(t, mode)
		})
	}
}

// ----------------------------------------
// Conformance across all modes
// ----------------------------------------

func TestWriteReadRoundTrip(t *testing.T) {
	forAllModes(t, func(t *testing.T, mode Mode) {
		p := NewTxnProcessor(mode, &Options{Workers: 4})
		defer p.Close()

		const n = 50
		for i := 0; i < n; i++ {
			key := txn.Key(fmt.Sprintf("key-%d", i))
			writeKey(t, p, key, encodeInt(i))
		}
		for i := 0; i < n; i++ {
			key := txn.Key(fmt.Sprintf("key-%d", i))
			v, ok := readKey(t, p, key)
			if !ok {
				t.Fatalf("key %q missing after commit", key)
			}
			if decodeInt(v) != i {
				t.Errorf("key %q = %d, want %d", key, decodeInt(v), i)
			}
		}
	})
}

func TestLogicalAbortDiscardsWrites(t *testing.T) {
	forAllModes(t, func(t *testing.T, mode Mode) {
		p := NewTxnProcessor(mode, &Options{Workers: 4})
		defer p.Close()

		key := txn.Key("doomed")
		p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
			tx.Write(key, encodeInt(42))
			tx.Abort()
		}))
		res := p.Result()
		if res.Status() != txn.StatusAborted {
			t.Fatalf("aborting txn finished with status %s", res.Status())
		}
		if res.Restarts != 0 {
			t.Errorf("logical abort was restarted %d times", res.Restarts)
		}

		if _, ok := readKey(t, p, key); ok {
			t.Error("aborted write is visible")
		}
	})
}

func TestConcurrentSubmittersAndPollers(t *testing.T) {
	forAllModes(t, func(t *testing.T, mode Mode) {
		p := NewTxnProcessor(mode, &Options{Workers: 4})
		defer p.Close()

		const (
			submitters = 4
			perWorker  = 50
			pollers    = 2
		)

		var wg sync.WaitGroup
		for s := 0; s < submitters; s++ {
			wg.Add(1)
			go func(s int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					key := txn.Key(fmt.Sprintf("w%d-k%d", s, i))
					p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
						tx.Write(key, encodeInt(i))
						tx.Commit()
					}))
				}
			}(s)
		}

		// Each result is delivered to exactly one poller, so a fixed
		// quota per poller drains the queue without coordination.
		total := submitters * perWorker
		results := make(chan *txn.Transaction, total)
		var pg sync.WaitGroup
		for i := 0; i < pollers; i++ {
			pg.Add(1)
			go func() {
				defer pg.Done()
				for n := 0; n < total/pollers; n++ {
					res := p.Result()
					if res == nil {
						return
					}
					results <- res
				}
			}()
		}

		wg.Wait()
		pg.Wait()
		close(results)

		got := 0
		for res := range results {
			if res.Status() != txn.StatusCommitted {
				t.Errorf("txn %d finished with status %s", res.ID, res.Status())
			}
			got++
		}
		if got != total {
			t.Fatalf("got %d results, want %d", got, total)
		}
	})
}

// ----------------------------------------
// Conflict serialization (all serializable modes)
// ----------------------------------------

// Concurrent read-modify-write increments of one counter must never
// lose an update under a serializable scheduler. MVCC is excluded:
// snapshot isolation permits lost updates on write-write conflicts.
func TestConcurrentIncrementsSerialize(t *testing.T) {
	for _, mode := range AllModes() {
		if mode == ModeMVCC {
			continue
		}
		t.Run(mode.String(), func(t *testing.T) {
			p := NewTxnProcessor(mode, &Options{Workers: 8})
			defer p.Close()

			const n = 64
			key := txn.Key("counter")
			for i := 0; i < n; i++ {
				p.Submit(txn.New([]txn.Key{key}, []txn.Key{key}, func(tx *txn.Transaction) {
					cur := 0
					if v, ok := tx.Read(key); ok {
						cur = decodeInt(v)
					}
					tx.Write(key, encodeInt(cur+1))
					tx.Commit()
				}))
			}
			for _, res := range awaitResults(t, p, n) {
				if res.Status() != txn.StatusCommitted {
					t.Errorf("increment finished with status %s", res.Status())
				}
			}

			v, ok := readKey(t, p, key)
			if !ok {
				t.Fatal("counter missing")
			}
			if decodeInt(v) != n {
				t.Errorf("counter = %d, want %d (lost updates)", decodeInt(v), n)
			}
		})
	}
}

// A multi-key commit must be observed whole or not at all: a committed
// reader of the full key set may never see two write generations mixed,
// no matter how its execution interleaves with the writers' apply loops.
func TestCommittedReadersSeeWholeCommits(t *testing.T) {
	for _, mode := range []Mode{ModeOCC, ModeParallelOCC, ModeMVCC} {
		t.Run(mode.String(), func(t *testing.T) {
			p := NewTxnProcessor(mode, &Options{Workers: 8})
			defer p.Close()

			keys := []txn.Key{"gen-a", "gen-b", "gen-c", "gen-d"}
			writeGen := func(gen int) *txn.Transaction {
				return txn.New(nil, keys, func(tx *txn.Transaction) {
					for _, key := range keys {
						tx.Write(key, encodeInt(gen))
					}
					tx.Commit()
				})
			}

			p.Submit(writeGen(0))
			if res := p.Result(); res.Status() != txn.StatusCommitted {
				t.Fatalf("seed write finished with status %s", res.Status())
			}

			const writers, readers = 32, 64
			for i := 0; i < writers; i++ {
				p.Submit(writeGen(i + 1))
			}
			for i := 0; i < readers; i++ {
				p.Submit(txn.New(keys, nil, func(tx *txn.Transaction) {
					tx.Commit()
				}))
			}

			for _, res := range awaitResults(t, p, writers+readers) {
				if res.Status() != txn.StatusCommitted {
					t.Fatalf("txn %d finished with status %s", res.ID, res.Status())
				}
				if res.InWriteSet(keys[0]) {
					continue
				}
				gen := decodeInt(res.Reads[keys[0]])
				for _, key := range keys[1:] {
					if got := decodeInt(res.Reads[key]); got != gen {
						t.Errorf("reader %d saw generation %d for %q but %d for %q",
							res.ID, gen, keys[0], got, key)
					}
				}
			}
		})
	}
}

// The watermark may only reach a commit timestamp once every commit at
// or below it has ended, so a faster later commit never exposes a slower
// earlier one mid-apply.
func TestCommitWatermarkTrailsInFlightCommits(t *testing.T) {
	c := newCommitTracker()

	t1 := c.begin()
	t2 := c.begin()

	if got := c.end(t2); got != t1-1 {
		t.Fatalf("watermark after ending ts %d = %d, want %d while ts %d is in flight",
			t2, got, t1-1, t1)
	}
	if got := c.end(t1); got != t2 {
		t.Fatalf("watermark after ending ts %d = %d, want %d", t1, got, t2)
	}

	t3 := c.begin()
	if got := c.end(t3); got != t3 {
		t.Fatalf("watermark with no commits in flight = %d, want %d", got, t3)
	}
}

// ----------------------------------------
// Locking-specific behavior
// ----------------------------------------

// A transaction touching a single key waits for its lock instead of
// restarting: it can never be part of a wait cycle.
func TestLockingSingleKeyNeverRestarts(t *testing.T) {
	for _, mode := range []Mode{ModeLockingExclusiveOnly, ModeLocking} {
		t.Run(mode.String(), func(t *testing.T) {
			p := NewTxnProcessor(mode, &Options{Workers: 8})
			defer p.Close()

			const n = 128
			key := txn.Key("hot")
			for i := 0; i < n; i++ {
				p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
					tx.Write(key, encodeInt(i))
					tx.Commit()
				}))
			}
			for _, res := range awaitResults(t, p, n) {
				if res.Restarts != 0 {
					t.Errorf("single-key txn %d restarted %d times", res.ID, res.Restarts)
				}
			}
		})
	}
}

// A key declared in both sets must only be write-locked, otherwise the
// transaction would block on its own shared lock forever.
func TestLockingOverlappingKeySets(t *testing.T) {
	p := NewTxnProcessor(ModeLocking, &Options{Workers: 2})
	defer p.Close()

	key := txn.Key("both")
	writeKey(t, p, key, encodeInt(1))

	p.Submit(txn.New([]txn.Key{key}, []txn.Key{key}, func(tx *txn.Transaction) {
		v, _ := tx.Read(key)
		tx.Write(key, encodeInt(decodeInt(v)*10))
		tx.Commit()
	}))
	res := p.Result()
	if res.Status() != txn.StatusCommitted {
		t.Fatalf("overlapping-set txn finished with status %s", res.Status())
	}

	if v, _ := readKey(t, p, key); decodeInt(v) != 10 {
		t.Errorf("key = %d, want 10", decodeInt(v))
	}
}

// Shared mode must let read-only transactions of one key proceed while
// an exclusive-only manager would serialize them. Smoke-tested by
// running a read-heavy workload to completion in both variants.
func TestLockingReadHeavyWorkload(t *testing.T) {
	for _, mode := range []Mode{ModeLockingExclusiveOnly, ModeLocking} {
		t.Run(mode.String(), func(t *testing.T) {
			p := NewTxnProcessor(mode, &Options{Workers: 8})
			defer p.Close()

			key := txn.Key("shared")
			writeKey(t, p, key, encodeInt(7))

			const n = 100
			for i := 0; i < n; i++ {
				p.Submit(txn.New([]txn.Key{key}, nil, func(tx *txn.Transaction) {
					tx.Commit()
				}))
			}
			for _, res := range awaitResults(t, p, n) {
				if v := res.Reads[key]; decodeInt(v) != 7 {
					t.Errorf("reader saw %d, want 7", decodeInt(v))
				}
			}
		})
	}
}

// ----------------------------------------
// MVCC-specific behavior
// ----------------------------------------

// A snapshot taken at admission must not observe commits issued
// afterwards, even when the later writer finishes first.
func TestMVCCSnapshotStability(t *testing.T) {
	p := NewTxnProcessor(ModeMVCC, &Options{Workers: 2})
	defer p.Close()

	key := txn.Key("versioned")
	writeKey(t, p, key, encodeInt(1))

	// Park both workers so the reader's snapshot is fixed before
	// either the reader or the overwriting writer executes.
	gate := make(chan struct{})
	for i := 0; i < 2; i++ {
		p.Submit(txn.New(nil, nil, func(tx *txn.Transaction) {
			<-gate
			tx.Commit()
		}))
	}

	p.Submit(txn.New([]txn.Key{key}, nil, func(tx *txn.Transaction) {
		tx.Commit()
	}))
	p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
		tx.Write(key, encodeInt(2))
		tx.Commit()
	}))
	close(gate)

	var readerSaw int
	for _, res := range awaitResults(t, p, 4) {
		if res.Status() != txn.StatusCommitted {
			t.Fatalf("txn %d finished with status %s", res.ID, res.Status())
		}
		if res.InReadSet(key) {
			readerSaw = decodeInt(res.Reads[key])
		}
	}
	if readerSaw != 1 {
		t.Errorf("reader saw %d, want the pre-writer value 1", readerSaw)
	}

	if v, _ := readKey(t, p, key); decodeInt(v) != 2 {
		t.Errorf("fresh snapshot saw %d, want 2", decodeInt(v))
	}
}

// Disjoint writers proceed without restarts and their commits are all
// visible to a snapshot taken afterwards.
func TestMVCCDisjointWriters(t *testing.T) {
	p := NewTxnProcessor(ModeMVCC, &Options{Workers: 8, GCInterval: 16})
	defer p.Close()

	const n = 200
	for i := 0; i < n; i++ {
		key := txn.Key(fmt.Sprintf("mv-%d", i))
		p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
			tx.Write(key, encodeInt(i))
			tx.Commit()
		}))
	}
	for _, res := range awaitResults(t, p, n) {
		if res.Status() != txn.StatusCommitted {
			t.Errorf("txn %d finished with status %s", res.ID, res.Status())
		}
		if res.Restarts != 0 {
			t.Errorf("mvcc txn %d restarted %d times", res.ID, res.Restarts)
		}
	}

	for i := 0; i < n; i++ {
		key := txn.Key(fmt.Sprintf("mv-%d", i))
		if v, ok := readKey(t, p, key); !ok || decodeInt(v) != i {
			t.Fatalf("key %q not visible after commit", key)
		}
	}
}

// ----------------------------------------
// Lifecycle
// ----------------------------------------

func TestCloseDrainsAndStopsAdmission(t *testing.T) {
	p := NewTxnProcessor(ModeSerial, nil)

	key := txn.Key("last")
	writeKey(t, p, key, encodeInt(1))

	p.Close()
	p.Close() // idempotent

	if id := p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
		tx.Commit()
	})); id != 0 {
		t.Errorf("Submit after Close returned id %d, want 0", id)
	}
	if res := p.Result(); res != nil {
		t.Errorf("Result after Close and drain returned txn %d", res.ID)
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range AllModes() {
		got, err := ParseMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}
