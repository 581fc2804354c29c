// Package cmd implements the command-line interface for the dTxn
// transaction processing engine.
//
// The package is organized into several subpackages:
//
//   - bench: Benchmarks the schedulers against configurable workloads
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dtxn -help for a list of all commands.
package cmd
