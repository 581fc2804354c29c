package mvstore

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	storagetesting "github.com/ValentinKolb/dTxn/lib/storage/testing"
)

func Test(t *testing.T) {
	storagetesting.RunStorageTests(t, "MultiVersionStore", NewMultiVersionStore)
}

func newStore() *storeImpl {
	s := NewMultiVersionStore().(*storeImpl)
	s.Init()
	return s
}

func TestSnapshotSelection(t *testing.T) {
	s := newStore()
	s.Write("key", []byte("v10"), 1, 10)
	s.Write("key", []byte("v20"), 2, 20)
	s.Write("key", []byte("v30"), 3, 30)

	cases := []struct {
		ts    uint64
		want  string
		found bool
	}{
		{5, "", false},
		{10, "v10", true},
		{15, "v10", true},
		{20, "v20", true},
		{29, "v20", true},
		{30, "v30", true},
		{1000, "v30", true},
	}

	for _, c := range cases {
		got, found := s.Read("key", c.ts)
		if found != c.found {
			t.Errorf("read at %d: expected found=%v, got %v", c.ts, c.found, found)
			continue
		}
		if found && !bytes.Equal(got, []byte(c.want)) {
			t.Errorf("read at %d: expected %q, got %q", c.ts, c.want, got)
		}
	}
}

func TestSnapshotStableUnderLaterWrites(t *testing.T) {
	s := newStore()
	s.Write("key", []byte("old"), 1, 10)

	before, _ := s.Read("key", 15)

	// A commit after the snapshot must not change what the snapshot sees.
	s.Write("key", []byte("new"), 2, 20)

	after, found := s.Read("key", 15)
	if !found || !bytes.Equal(before, after) {
		t.Errorf("snapshot at 15 changed after later commit: %q -> %q", before, after)
	}
}

func TestNonIncreasingTimestampPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on non-increasing version timestamp")
		}
	}()

	s := newStore()
	s.Write("key", []byte("v1"), 1, 10)
	s.Write("key", []byte("v2"), 2, 10)
}

func TestPrune(t *testing.T) {
	s := newStore()
	s.Write("key", []byte("v10"), 1, 10)
	s.Write("key", []byte("v20"), 2, 20)
	s.Write("key", []byte("v30"), 3, 30)

	s.Prune(25)

	// Snapshots at or after 25 must be unaffected.
	got, found := s.Read("key", 25)
	if !found || !bytes.Equal(got, []byte("v20")) {
		t.Errorf("expected snapshot 25 to still see v20, got %q (found=%v)", got, found)
	}
	got, _ = s.Read("key", 30)
	if !bytes.Equal(got, []byte("v30")) {
		t.Errorf("expected snapshot 30 to still see v30, got %q", got)
	}

	// The v10 version is invisible to any live snapshot and must be gone.
	c, _ := s.data.Load("key")
	c.mu.RLock()
	n := len(c.versions)
	c.mu.RUnlock()
	if n != 2 {
		t.Errorf("expected 2 versions after prune, got %d", n)
	}
}

func TestConcurrentSameKeyAppends(t *testing.T) {
	s := newStore()

	const writers = 8

	// Writers contend on one key with pre-assigned distinct timestamps;
	// the per-chain lock must keep the chain ordered regardless of arrival
	// order. Timestamps are handed out in increasing order per writer via
	// a channel so appends never violate the monotonicity invariant.
	tsCh := make(chan uint64, writers)
	for i := 1; i <= writers; i++ {
		tsCh <- uint64(i * 10)
	}
	close(tsCh)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			mu.Lock()
			ts := <-tsCh
			s.Write("hot", []byte(fmt.Sprintf("v%d", ts)), uint64(w), ts)
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	c, _ := s.data.Load("hot")
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.versions) != writers {
		t.Fatalf("expected %d versions, got %d", writers, len(c.versions))
	}
	for i := 1; i < len(c.versions); i++ {
		if c.versions[i].ts <= c.versions[i-1].ts {
			t.Errorf("version chain out of order at %d: %d <= %d",
				i, c.versions[i].ts, c.versions[i-1].ts)
		}
	}
}
