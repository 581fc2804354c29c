// Package storage provides the key-value storage layer underneath the dTxn
// scheduling engine. It defines a single interface (IStorage) with two
// implementations that differ in how they treat time:
//
//   - Single-Version Store (svstore): Each key holds exactly one value; a
//     write overwrites the previous value and records the writer's logical
//     timestamp. Reads always observe the latest committed value. This is the
//     storage used by the serial, locking and optimistic protocols, where the
//     scheduler layer is responsible for isolation.
//     Available in the "github.com/ValentinKolb/dTxn/lib/storage/svstore" package.
//
//   - Multi-Version Store (mvstore): Each write appends a new timestamped
//     version to the key's version chain; a read at snapshot timestamp τ
//     selects the newest version not newer than τ. Versions that no live
//     snapshot can observe anymore are discarded by Prune. This is the storage
//     used by the MVCC protocol, where isolation comes from versioning rather
//     than mutual exclusion.
//     Available in the "github.com/ValentinKolb/dTxn/lib/storage/mvstore" package.
//
// Timestamps are logical: the engine issues them from a monotonically
// increasing counter, they carry no wall-clock meaning. A timestamp of zero
// means "never written" (Timestamp) or "latest" (Read on the single-version
// store, which ignores the snapshot parameter entirely).
//
// Thread Safety:
//
//	All IStorage implementations are safe for concurrent use. The
//	single-version store synchronizes per key through its concurrent map; the
//	multi-version store additionally serializes same-key version appends with
//	a per-chain mutex so that two writers to the same key cannot interleave
//	their appends. Writers to disjoint keys never contend.
//
// This interface-driven approach mirrors the rest of the library: the engine
// is written against IStorage and is handed the variant matching its
// concurrency-control mode at construction time.
package storage
