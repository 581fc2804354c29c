// Package pool implements the bounded worker pool executing transaction
// logic for the engine.
//
// The pool owns a fixed number of worker goroutines that share one task
// queue (a queue.MPSC); the queue's delivery channel fans tasks out so each
// submitted closure runs on exactly one worker. There is no ordering
// guarantee across tasks.
//
// Active() reports whether the pool still accepts work and is the
// continuation condition of the engine's scheduler loop: the loop runs
// until the pool it dispatches to has been closed. Close() stops intake,
// lets the workers drain the remaining tasks, and joins them.
package pool
