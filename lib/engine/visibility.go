package engine

import (
	"container/heap"
	"sync"
)

// commitTracker issues commit timestamps and bounds how far the visible
// watermark may advance. A timestamp is in flight from begin until end,
// and the watermark may only reach a timestamp once every commit at or
// below it has ended. A snapshot or optimistic start timestamp drawn
// from the watermark therefore always covers a gap-free prefix of fully
// applied commits, never half of one.
type commitTracker struct {
	mu       sync.Mutex
	clock    uint64
	inflight *snapshotHeap
	maxDone  uint64
}

func newCommitTracker() *commitTracker {
	h := &snapshotHeap{byID: make(map[uint64]*snapshotItem)}
	heap.Init(h)
	return &commitTracker{inflight: h}
}

// begin draws the next commit timestamp and marks it in flight. Drawing
// and marking are one critical section: a gap between them would let a
// faster committer move the watermark past the new timestamp.
func (c *commitTracker) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	heap.Push(c.inflight, &snapshotItem{id: c.clock, ts: c.clock})
	return c.clock
}

// end marks ts as fully applied and returns the highest timestamp the
// watermark may now reach: the end of the gap-free applied prefix, which
// stops just below the oldest commit still in flight.
func (c *commitTracker) end(ts uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.inflight.byID[ts]; ok {
		heap.Remove(c.inflight, it.index)
	}
	if ts > c.maxDone {
		c.maxDone = ts
	}
	if c.inflight.Len() > 0 && c.inflight.items[0].ts-1 < c.maxDone {
		return c.inflight.items[0].ts - 1
	}
	return c.maxDone
}
