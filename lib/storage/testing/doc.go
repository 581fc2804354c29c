// Package testing provides a shared conformance test suite for
// storage.IStorage implementations.
//
// Implementations register themselves by calling RunStorageTests from their
// own test file with a factory that creates a fresh instance per test case.
// The suite only exercises behavior every variant must satisfy; semantics
// specific to multi-versioning (snapshot selection, pruning) live in the
// mvstore package's own tests.
package testing
