// Package rendezvous implements the frame-id keyed result table callers
// block on (spec.md §4.9).
package rendezvous

import (
	"sort"
	"sync"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
)

// Status is the outcome of a Wait/TryGet call.
type Status int

const (
	StatusSuccess Status = iota
	StatusPending
	StatusTimeout
	StatusNotFound
	StatusStopped
)

// Result is the outcome of a Wait/TryGet call, carrying the Frame on
// StatusSuccess.
type Result struct {
	Status Status
	Frame  *core.Frame
}

// Rendezvous maps frame_id to a completed Frame, or to nothing yet. A
// frame_id is published at most once, and the first waiter to observe it
// removes it; a soft cap bounds unbounded growth if callers never read.
type Rendezvous struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[uint64]*core.Frame
	softCap int
	closed  bool
}

// New creates a Rendezvous with the given soft retention cap (spec.md §4.9:
// "when size exceeds a soft cap... evicts the oldest half"). A non-positive
// cap falls back to core.DefaultRendezvousSoftCap.
func New(softCap int) *Rendezvous {
	if softCap <= 0 {
		softCap = core.DefaultRendezvousSoftCap
	}
	r := &Rendezvous{
		entries: make(map[uint64]*core.Frame),
		softCap: softCap,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Publish inserts frame under frameID and wakes every waiter. Evicts the
// oldest half of entries if the soft cap is exceeded afterward.
func (r *Rendezvous) Publish(frameID uint64, frame *core.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries[frameID] = frame
	if len(r.entries) > r.softCap {
		r.evictOldestHalfLocked()
	}
	r.cond.Broadcast()
}

// evictOldestHalfLocked must be called with r.mu held.
func (r *Rendezvous) evictOldestHalfLocked() {
	ids := make([]uint64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	toEvict := len(ids) / 2
	for _, id := range ids[:toEvict] {
		delete(r.entries, id)
	}
}

// Wait blocks for up to timeout for frameID's result, rechecking on every
// wakeup. It returns the frame and removes it from the table on success so
// a concurrent second waiter on the same id observes NotFound.
func (r *Rendezvous) Wait(frameID uint64, timeout time.Duration) Result {
	deadline := time.Now().Add(timeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.closed {
			return Result{Status: StatusStopped}
		}
		if f, ok := r.entries[frameID]; ok {
			delete(r.entries, frameID)
			return Result{Status: StatusSuccess, Frame: f}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{Status: StatusTimeout}
		}
		r.waitWithTimeout(remaining)
	}
}

// waitWithTimeout parks the caller on r.cond for at most d, re-acquiring
// r.mu before returning. sync.Cond has no native timeout, so a private
// timer goroutine performs a Broadcast if d elapses first.
func (r *Rendezvous) waitWithTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()
	r.cond.Wait()
}

// TryGet is the non-blocking variant: returns StatusNotFound immediately
// if frameID isn't present, and StatusStopped once the rendezvous is
// stopped.
func (r *Rendezvous) TryGet(frameID uint64) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Result{Status: StatusStopped}
	}
	f, ok := r.entries[frameID]
	if !ok {
		return Result{Status: StatusNotFound}
	}
	delete(r.entries, frameID)
	return Result{Status: StatusSuccess, Frame: f}
}

// Shutdown wakes every waiter; subsequent Wait/TryGet calls return
// StatusStopped. Idempotent.
func (r *Rendezvous) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.cond.Broadcast()
}

// Len reports how many unread results are currently retained, for
// observability.
func (r *Rendezvous) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
