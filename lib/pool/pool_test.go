package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAllTasksRun(t *testing.T) {
	p := NewPool(4)

	const tasks = 1000
	var ran atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		ok := p.Submit(func() {
			ran.Add(1)
			wg.Done()
		})
		if !ok {
			t.Fatalf("Submit failed on open pool")
		}
	}

	wg.Wait()
	p.Close()

	if ran.Load() != tasks {
		t.Errorf("Expected %d tasks to run, got %d", tasks, ran.Load())
	}
}

func TestParallelExecution(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	// Two tasks that can only finish if they run concurrently.
	barrier := make(chan struct{})
	done := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		p.Submit(func() {
			select {
			case barrier <- struct{}{}:
			case <-barrier:
			}
			done <- struct{}{}
		})
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Tasks did not run in parallel")
		}
	}
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	p := NewPool(1)

	var ran atomic.Int64
	const tasks = 100
	for i := 0; i < tasks; i++ {
		p.Submit(func() { ran.Add(1) })
	}

	p.Close()

	if ran.Load() != tasks {
		t.Errorf("Expected Close to drain all %d tasks, got %d", tasks, ran.Load())
	}
	if p.Active() {
		t.Errorf("Expected pool to be inactive after Close")
	}
	if p.Submit(func() {}) {
		t.Errorf("Expected Submit to fail after Close")
	}
}
