package pool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dTxn/lib/queue"
)

// Task is a unit of work executed by one pool worker.
type Task func()

// Pool is a fixed-size worker pool fed by a shared lock-free task queue.
type Pool struct {
	tasks   *queue.MPSC[Task]
	workers sync.WaitGroup
	active  atomic.Bool
}

// NewPool creates a pool with the given number of workers and starts them.
// A non-positive worker count defaults to the number of CPUs.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		tasks: queue.NewMPSC[Task](),
	}
	p.active.Store(true)

	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}

	return p
}

// work runs submitted tasks until the task queue is closed and drained.
func (p *Pool) work() {
	defer p.workers.Done()

	for task := range p.tasks.Recv() {
		(*task)()
	}
}

// Submit hands a task to the pool. Returns false if the pool was closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *Pool) Submit(task Task) bool {
	if task == nil || !p.active.Load() {
		return false
	}
	return p.tasks.Push(&task)
}

// Active returns whether the pool still accepts tasks.
func (p *Pool) Active() bool {
	return p.active.Load()
}

// Close stops task intake, waits for queued tasks to finish, and joins the
// workers. Safe to call once.
func (p *Pool) Close() {
	p.active.Store(false)
	p.tasks.Close()
	p.workers.Wait()
}
