package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dTxn/lib/storage"
)

// RunStorageTests runs the conformance test suite for an IStorage
// implementation.
func RunStorageTests(t *testing.T, name string, factory storage.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("ReadAfterWrite", func(t *testing.T) {
			testReadAfterWrite(t, newStorage(factory))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, newStorage(factory))
		})

		t.Run("AbsentKey", func(t *testing.T) {
			testAbsentKey(t, newStorage(factory))
		})

		t.Run("Timestamp", func(t *testing.T) {
			testTimestamp(t, newStorage(factory))
		})

		t.Run("ConcurrentDisjointWriters", func(t *testing.T) {
			testConcurrentDisjointWriters(t, newStorage(factory))
		})
	})
}

func newStorage(factory storage.Factory) storage.IStorage {
	s := factory()
	s.Init()
	return s
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testReadAfterWrite(t *testing.T, s storage.IStorage) {
	s.Write("key", []byte("value"), 1, 10)

	got, found := s.Read("key", 10)
	if !found {
		t.Fatalf("expected key to exist after write")
	}
	if !bytes.Equal(got, []byte("value")) {
		t.Errorf("expected value %q, got %q", "value", got)
	}

	// A later snapshot must still observe the write.
	got, found = s.Read("key", 100)
	if !found || !bytes.Equal(got, []byte("value")) {
		t.Errorf("expected later snapshot to observe value, got %q (found=%v)", got, found)
	}
}

func testOverwrite(t *testing.T, s storage.IStorage) {
	s.Write("key", []byte("v1"), 1, 10)
	s.Write("key", []byte("v2"), 2, 20)

	got, found := s.Read("key", 20)
	if !found || !bytes.Equal(got, []byte("v2")) {
		t.Errorf("expected latest value v2, got %q (found=%v)", got, found)
	}
}

func testAbsentKey(t *testing.T, s storage.IStorage) {
	if _, found := s.Read("nonexistent", 100); found {
		t.Errorf("expected absent key to report found=false")
	}
	if ts := s.Timestamp("nonexistent"); ts != 0 {
		t.Errorf("expected zero timestamp for absent key, got %d", ts)
	}
}

func testTimestamp(t *testing.T, s storage.IStorage) {
	s.Write("key", []byte("v1"), 1, 10)
	if ts := s.Timestamp("key"); ts != 10 {
		t.Errorf("expected timestamp 10, got %d", ts)
	}

	s.Write("key", []byte("v2"), 2, 25)
	if ts := s.Timestamp("key"); ts != 25 {
		t.Errorf("expected timestamp 25 after overwrite, got %d", ts)
	}
}

func testConcurrentDisjointWriters(t *testing.T, s storage.IStorage) {
	const (
		writers = 8
		keys    = 100
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				ts := uint64(w*keys + i + 1)
				s.Write(key, []byte(key), uint64(w), ts)
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < writers; w++ {
		for i := 0; i < keys; i++ {
			key := fmt.Sprintf("w%d-k%d", w, i)
			got, found := s.Read(key, ^uint64(0))
			if !found || !bytes.Equal(got, []byte(key)) {
				t.Fatalf("lost write for key %s (found=%v, got %q)", key, found, got)
			}
		}
	}
}
