// Package queue implements the bounded, shutdown-aware FIFO (spec.md §4.1)
// that every inter-stage connector and the batch buffer's ready queue are
// built on.
package queue

import (
	"sync"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
)

// BoundedQueue is a multi-producer, multi-consumer FIFO with a fixed
// capacity. It is the generic workhorse behind internal/connector and
// internal/batchbuffer; items are emitted in exactly the order they were
// accepted, size never exceeds capacity, and a shutdown wakes every blocked
// waiter instead of leaving them parked.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []T
	capacity int
	closed   bool
}

// New creates a BoundedQueue with the given capacity. A non-positive
// capacity is treated as 1.
func New[T any](capacity int) *BoundedQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	q := &BoundedQueue[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Send blocks while the queue is full and not shut down. It returns
// core.ErrQueueClosed if the queue was (or became) shut down before the
// item could be enqueued.
func (q *BoundedQueue[T]) Send(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.capacity && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return core.ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// SendTimeout blocks up to timeout while the queue is full and not shut
// down, returning core.ErrTimeout if the deadline elapses first. This is
// the caller-facing-deadline primitive behind add_timeout_ms (spec.md §3);
// sync.Cond has no native timed wait, so a private timer goroutine
// broadcasts notFull if the deadline elapses before room frees up.
func (q *BoundedQueue[T]) SendTimeout(item T, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.capacity && !q.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return core.ErrTimeout
		}
		q.waitNotFullTimeout(remaining)
	}
	if q.closed {
		return core.ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// waitNotFullTimeout must be called with q.mu held; it releases the lock
// for at most d while waiting for notFull, then re-acquires it.
func (q *BoundedQueue[T]) waitNotFullTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.notFull.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	q.notFull.Wait()
}

// TrySend is the non-blocking variant of Send: it returns core.ErrQueueFull
// immediately if there is no room, without waiting.
func (q *BoundedQueue[T]) TrySend(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return core.ErrQueueClosed
	}
	if len(q.items) >= q.capacity {
		return core.ErrQueueFull
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// Recv blocks while the queue is empty and not shut down. Once shut down it
// continues returning queued items until the queue drains, after which it
// returns core.ErrQueueClosed — mirroring spec.md §4.1 "on shutdown with
// empty queue returns 'closed'".
func (q *BoundedQueue[T]) Recv() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return zero, core.ErrQueueClosed
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, nil
}

// TryRecv is the non-blocking variant of Recv: it returns core.ErrQueueEmpty
// immediately if nothing is queued.
func (q *BoundedQueue[T]) TryRecv() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		if q.closed {
			return zero, core.ErrQueueClosed
		}
		return zero, core.ErrQueueEmpty
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, nil
}

// Shutdown is idempotent. It wakes every blocked Send/Recv waiter; Send
// fails from then on, Recv continues draining queued items before failing.
func (q *BoundedQueue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Clear discards every queued item without closing the queue.
func (q *BoundedQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
	q.notFull.Broadcast()
}

// Size returns the current number of queued items.
func (q *BoundedQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the fixed capacity the queue was created with.
func (q *BoundedQueue[T]) Capacity() int {
	return q.capacity
}

// Closed reports whether Shutdown has been called.
func (q *BoundedQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
