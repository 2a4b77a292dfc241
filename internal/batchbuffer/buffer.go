// Package batchbuffer implements the ingress batch-formation buffer with
// backpressure (spec.md §4.4).
package batchbuffer

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/queue"
)

// Buffer converts a stream of single Frames into a stream of Batches,
// bounded by readyCap. A dedicated timer goroutine flushes a partially
// filled forming batch once it is older than flushInterval.
type Buffer struct {
	ready *queue.BoundedQueue[*core.Batch]

	flushInterval time.Duration
	nextBatchID   atomic.Uint64

	mu      sync.Mutex
	forming *core.Batch

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Buffer. readyCap bounds the number of formed-but-unconsumed
// batches (the backpressure knob); flushInterval bounds how long a
// partially filled batch may sit before it is flushed regardless.
func New(readyCap int, flushInterval time.Duration) *Buffer {
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	return &Buffer{
		ready:         queue.New[*core.Batch](readyCap),
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the flush-timer goroutine. Safe to call once.
func (b *Buffer) Start() {
	b.wg.Add(1)
	go b.flushLoop()
}

// Stop shuts down the ready queue (unblocking any Add/Take waiters) and
// joins the flush-timer goroutine. Idempotent.
func (b *Buffer) Stop() {
	select {
	case <-b.stopCh:
		// already stopped
	default:
		close(b.stopCh)
	}
	b.ready.Shutdown()
	b.wg.Wait()
}

func (b *Buffer) flushLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.flushIfStale()
		}
	}
}

func (b *Buffer) flushIfStale() {
	b.mu.Lock()
	if b.forming == nil || b.forming.IsEmpty() || b.forming.Age() < b.flushInterval {
		b.mu.Unlock()
		return
	}
	batch := b.forming
	b.forming = nil
	b.mu.Unlock()

	if err := b.ready.Send(batch); err != nil {
		slog.Warn("batchbuffer: dropping batch flushed after shutdown", "batch_id", batch.BatchID)
	}
}

// Add appends a Frame to the currently forming batch. If the batch becomes
// full it moves to the ready queue (blocking while the ready queue is at
// capacity — the backpressure point) and a new forming batch is lazily
// allocated. Returns false once the buffer has been stopped.
func (b *Buffer) Add(f *core.Frame) bool {
	select {
	case <-b.stopCh:
		return false
	default:
	}
	b.mu.Lock()
	if b.forming == nil {
		b.forming = core.NewBatch(b.nextBatchID.Add(1))
	}
	_ = b.forming.Add(f)
	full := b.forming.IsFull()
	var toFlush *core.Batch
	if full {
		toFlush = b.forming
		b.forming = nil
	}
	b.mu.Unlock()

	if toFlush == nil {
		return true
	}
	return b.ready.Send(toFlush) == nil
}

// AddWithTimeout is Add bounded by the caller's add_timeout_ms deadline
// (spec.md §6 submit()). It returns core.ErrTimeout if the ready queue is
// still saturated when the deadline elapses, and core.ErrStopped once the
// buffer has been stopped.
func (b *Buffer) AddWithTimeout(f *core.Frame, timeout time.Duration) error {
	select {
	case <-b.stopCh:
		return core.ErrStopped
	default:
	}
	b.mu.Lock()
	if b.forming == nil {
		b.forming = core.NewBatch(b.nextBatchID.Add(1))
	}
	_ = b.forming.Add(f)
	full := b.forming.IsFull()
	var toFlush *core.Batch
	if full {
		toFlush = b.forming
		b.forming = nil
	}
	b.mu.Unlock()

	if toFlush == nil {
		return nil
	}

	err := b.ready.SendTimeout(toFlush, timeout)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrTimeout) {
		return core.ErrStopped
	}

	b.mu.Lock()
	if b.forming == nil {
		b.forming = toFlush
		b.mu.Unlock()
		return core.ErrTimeout
	}
	b.mu.Unlock()

	// A concurrent Add already allocated a new forming batch while we were
	// waiting; hand this one off in the background so no frame is lost.
	go func() {
		if err := b.ready.Send(toFlush); err != nil {
			slog.Warn("batchbuffer: dropping timed-out batch after shutdown", "batch_id", toFlush.BatchID)
		}
	}()
	return core.ErrTimeout
}

// Take blocks until a Batch is ready and returns it, or returns false once
// the buffer is stopped and drained.
func (b *Buffer) Take() (*core.Batch, bool) {
	batch, err := b.ready.Recv()
	if err != nil {
		return nil, false
	}
	return batch, true
}

// FlushCurrent moves the forming batch to the ready queue immediately, even
// if it isn't full, provided it holds at least one frame.
func (b *Buffer) FlushCurrent() {
	b.mu.Lock()
	if b.forming == nil || b.forming.IsEmpty() {
		b.mu.Unlock()
		return
	}
	batch := b.forming
	b.forming = nil
	b.mu.Unlock()

	if err := b.ready.Send(batch); err != nil {
		slog.Warn("batchbuffer: dropping batch on flush after shutdown", "batch_id", batch.BatchID)
	}
}

// ReadyLen reports how many formed batches are currently queued, for
// observability (internal/metrics, pipeline_status_string).
func (b *Buffer) ReadyLen() int {
	return b.ready.Size()
}
