// Package workerpool implements the fixed-size worker pool with a bounded
// backlog (spec.md §4.2), used by the segmentation and mask post-process
// stages to fan per-frame work out across a Batch.
package workerpool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
)

// backlogCap is the fixed bound on queued-but-not-yet-running tasks
// (spec.md §4.2: "bounded backlog of queued tasks (cap = 64)").
const backlogCap = 64

// Task is a unit of work submitted to a Pool.
type Task func() (any, error)

// Future is the completion handle returned by Submit. It carries the task's
// return value or its captured error; a panicking task is recovered and
// surfaces as an error here instead of escaping the worker goroutine.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Wait blocks until the task completes and returns its result.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.value, f.err
}

func (f *Future) complete(value any, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

type job struct {
	task   Task
	future *Future
}

// Pool is a fixed set of N workers draining a bounded backlog of jobs.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// New starts a Pool with n workers. n<=0 is treated as 1.
func New(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan job, backlogCap)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workerpool: task panicked", "recovered", r)
			j.future.complete(nil, fmt.Errorf("%w: %v", core.ErrTaskPanicked, r))
		}
	}()
	value, err := j.task()
	j.future.complete(value, err)
}

// Submit enqueues a task and returns a Future for its result. It fails with
// core.ErrPoolShutdown if Stop has been called, or core.ErrQueueFull if the
// backlog is saturated.
func (p *Pool) Submit(task Task) (*Future, error) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil, core.ErrPoolShutdown
	}
	p.mu.Unlock()

	future := &Future{done: make(chan struct{})}
	select {
	case p.jobs <- job{task: task, future: future}:
		return future, nil
	default:
		return nil, core.ErrQueueFull
	}
}

// Stop stops accepting new tasks, waits for in-flight and queued tasks to
// drain, and joins every worker. Idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
}
