package engine

import (
	"container/heap"
	"sync"
)

// ----------------------------------------
// Snapshot tracking (MVCC garbage collection)
// ----------------------------------------

type snapshotItem struct {
	id    uint64
	ts    uint64
	index int
}

// snapshotHeap is a min-heap over live snapshot timestamps with an id
// index for O(log n) removal. Not thread-safe; snapshotTracker wraps it.
type snapshotHeap struct {
	items []*snapshotItem
	byID  map[uint64]*snapshotItem
}

func (h *snapshotHeap) Len() int { return len(h.items) }

func (h *snapshotHeap) Less(i, j int) bool { return h.items[i].ts < h.items[j].ts }

func (h *snapshotHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *snapshotHeap) Push(x any) {
	it := x.(*snapshotItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byID[it.id] = it
}

func (h *snapshotHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	delete(h.byID, it.id)
	return it
}

// snapshotTracker records the read timestamp of every in-flight MVCC
// transaction so pruning never removes a version some live snapshot can
// still reach.
type snapshotTracker struct {
	mu   sync.Mutex
	heap *snapshotHeap
}

func newSnapshotTracker() *snapshotTracker {
	h := &snapshotHeap{byID: make(map[uint64]*snapshotItem)}
	heap.Init(h)
	return &snapshotTracker{heap: h}
}

// Register records a live snapshot. Called once per transaction at
// admission.
func (s *snapshotTracker) Register(id, ts uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(s.heap, &snapshotItem{id: id, ts: ts})
}

// Release drops a transaction's snapshot once it reached a terminal
// status. Unknown ids are ignored.
func (s *snapshotTracker) Release(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.heap.byID[id]; ok {
		heap.Remove(s.heap, it.index)
	}
}

// Oldest returns the smallest live snapshot timestamp, or false if no
// snapshot is live.
func (s *snapshotTracker) Oldest() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heap.Len() == 0 {
		return 0, false
	}
	return s.heap.items[0].ts, true
}
