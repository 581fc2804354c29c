package svstore

import (
	"github.com/ValentinKolb/dTxn/lib/storage"
	"github.com/ValentinKolb/dTxn/lib/txn"
	"github.com/puzpuzpuz/xsync/v3"
)

// entry stores a value with write metadata. Entries are immutable once
// stored; a new write replaces the whole entry.
type entry struct {
	value    txn.Value
	writerID uint64
	ts       uint64
}

type storeImpl struct {
	data *xsync.MapOf[txn.Key, entry]
}

// NewSingleVersionStore creates a new single-version store instance.
func NewSingleVersionStore() storage.IStorage {
	return &storeImpl{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Init() {
	s.data = xsync.NewMapOf[txn.Key, entry]()
}

func (s *storeImpl) Read(key txn.Key, _ uint64) (txn.Value, bool) {
	e, ok := s.data.Load(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (s *storeImpl) Write(key txn.Key, value txn.Value, writerID uint64, ts uint64) {
	s.data.Store(key, entry{value: value, writerID: writerID, ts: ts})
}

func (s *storeImpl) Timestamp(key txn.Key) uint64 {
	e, ok := s.data.Load(key)
	if !ok {
		return 0
	}
	return e.ts
}

func (s *storeImpl) Prune(_ uint64) {
	// Single value per key, nothing to collect.
}
