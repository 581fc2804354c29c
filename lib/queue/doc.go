// Package queue provides the lock-free stage queue connecting the engine's
// processing stages (incoming requests, completed transactions, results).
//
// Features and Guarantees:
//
//   - Lock-Free writes: atomic operations keep Push cheap even when many
//     clients and workers push concurrently
//   - Unbounded Size: the queue grows as needed, limited only by memory
//   - Thread-Safe writes: any number of goroutines may Push() concurrently
//   - Channel delivery: items are handed out through the Recv() channel;
//     multiple goroutines may receive from it, each item is delivered to
//     exactly one receiver (the result stage relies on this for concurrent
//     pollers, the worker pool for task fan-out)
//   - No Strict FIFO Guarantee: under concurrent Push() operations the order
//     is determined by which producer completes its CAS first, not by which
//     started first - matching the engine's completion-order result delivery
package queue
