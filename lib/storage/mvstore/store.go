package mvstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ValentinKolb/dTxn/lib/storage"
	"github.com/ValentinKolb/dTxn/lib/txn"
	"github.com/puzpuzpuz/xsync/v3"
)

// version is one historical state of a key.
type version struct {
	value    txn.Value
	writerID uint64
	ts       uint64
}

// chain holds all versions of one key, ordered by ascending timestamp.
type chain struct {
	mu       sync.RWMutex
	versions []version
}

type storeImpl struct {
	data *xsync.MapOf[txn.Key, *chain]
}

// NewMultiVersionStore creates a new multi-version store instance.
func NewMultiVersionStore() storage.IStorage {
	return &storeImpl{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Init() {
	s.data = xsync.NewMapOf[txn.Key, *chain]()
}

func (s *storeImpl) Read(key txn.Key, ts uint64) (txn.Value, bool) {
	c, ok := s.data.Load(key)
	if !ok {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Newest version with timestamp <= ts. Versions are sorted ascending,
	// so search for the first one beyond the snapshot and step back.
	idx := sort.Search(len(c.versions), func(i int) bool {
		return c.versions[i].ts > ts
	})
	if idx == 0 {
		return nil, false
	}
	return c.versions[idx-1].value, true
}

func (s *storeImpl) Write(key txn.Key, value txn.Value, writerID uint64, ts uint64) {
	c, _ := s.data.LoadOrStore(key, &chain{})

	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.versions); n > 0 && c.versions[n-1].ts >= ts {
		panic(fmt.Sprintf(
			"mvstore: non-increasing version timestamp for key %q (have %d, append %d)",
			key, c.versions[n-1].ts, ts,
		))
	}
	c.versions = append(c.versions, version{value: value, writerID: writerID, ts: ts})
}

func (s *storeImpl) Timestamp(key txn.Key) uint64 {
	c, ok := s.data.Load(key)
	if !ok {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.versions) == 0 {
		return 0
	}
	return c.versions[len(c.versions)-1].ts
}

func (s *storeImpl) Prune(oldest uint64) {
	s.data.Range(func(key txn.Key, c *chain) bool {
		c.mu.Lock()

		// First version still visible to a snapshot at oldest: the newest
		// one with ts <= oldest, or the very first if all are newer.
		idx := sort.Search(len(c.versions), func(i int) bool {
			return c.versions[i].ts > oldest
		})
		if idx > 1 {
			c.versions = append([]version(nil), c.versions[idx-1:]...)
		}

		c.mu.Unlock()
		return true
	})
}
