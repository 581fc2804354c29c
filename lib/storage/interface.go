package storage

import (
	"github.com/ValentinKolb/dTxn/lib/txn"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a new IStorage instance. It is
// used to abstract the creation of the storage from the engine and the
// shared test suite.
type Factory func() IStorage

// IStorage is the generic interface for the storage layer below the
// transaction engine. Implementations are either single-version (one value
// per key, reads ignore the snapshot timestamp) or multi-version (reads
// select by snapshot timestamp).
//
// Storage operations do not fail at runtime: a read of an unknown key
// reports found=false, and a write that violates the timestamp discipline
// indicates a scheduler bug and panics rather than returning an error.
type IStorage interface {
	// Init prepares the storage for use. It must be called exactly once
	// before any other method.
	Init()
	// Read returns the value for key visible at snapshot timestamp ts.
	// Single-version implementations ignore ts and return the latest value.
	// The boolean return value indicates whether a visible value was found.
	Read(key txn.Key, ts uint64) (value txn.Value, found bool)
	// Write stores value under key, recording the id of the writing
	// transaction and the commit timestamp ts. Multi-version
	// implementations append a new version; ts must be strictly greater
	// than the timestamp of any version already present for key.
	Write(key txn.Key, value txn.Value, writerID uint64, ts uint64)
	// Timestamp returns the commit timestamp of the most recent write to
	// key, or zero if key was never written. Optimistic validation compares
	// this against a transaction's start timestamp.
	Timestamp(key txn.Key) uint64
	// Prune discards versions that are no longer visible to any snapshot
	// taken at or after oldest. Single-version implementations treat this
	// as a no-op.
	Prune(oldest uint64)
}
