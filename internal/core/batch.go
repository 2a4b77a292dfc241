package core

import (
	"sort"
	"time"
)

// MaxBatchSize is the hard cap on the number of Frames a Batch may carry
// (spec.md §3: "up to 32 frames").
const MaxBatchSize = 32

// Batch is a bounded group of Frames moved as a unit between stages. It is
// never enlarged after it leaves the Batch Buffer (internal/batchbuffer);
// ownership transfers by move across connectors — whichever stage currently
// holds a *Batch is the only goroutine touching it.
type Batch struct {
	BatchID   uint64
	Frames    []*Frame
	CreatedAt time.Time
	StartedAt time.Time

	// StageDone[k] mirrors Frame.StageDone at the batch level, set once the
	// whole batch has cleared stage k.
	StageDone [5]bool
}

// NewBatch allocates an empty Batch with capacity for MaxBatchSize frames.
func NewBatch(id uint64) *Batch {
	return &Batch{
		BatchID:   id,
		Frames:    make([]*Frame, 0, MaxBatchSize),
		CreatedAt: time.Now(),
	}
}

// Add appends a Frame to the batch. It fails once the batch holds
// MaxBatchSize frames.
func (b *Batch) Add(f *Frame) error {
	if len(b.Frames) >= MaxBatchSize {
		return ErrBatchFull
	}
	b.Frames = append(b.Frames, f)
	return nil
}

// IsFull reports whether the batch has reached MaxBatchSize frames.
func (b *Batch) IsFull() bool {
	return len(b.Frames) >= MaxBatchSize
}

// IsEmpty reports whether the batch holds no frames.
func (b *Batch) IsEmpty() bool {
	return len(b.Frames) == 0
}

// Age returns how long ago the batch was created.
func (b *Batch) Age() time.Duration {
	return time.Since(b.CreatedAt)
}

// MarkStarted records StartedAt the first time a stage touches the batch
// (spec.md §4.6 process() step 1), a no-op on subsequent calls.
func (b *Batch) MarkStarted() {
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}
}

// SortByFrameID orders Frames ascending by FrameID in place. Required before
// the tracking and event stages process a batch (spec.md §3 invariants,
// §4.7.4, §4.7.5).
func (b *Batch) SortByFrameID() {
	sort.Slice(b.Frames, func(i, j int) bool {
		return b.Frames[i].FrameID < b.Frames[j].FrameID
	})
}

// IsSortedByFrameID reports whether Frames are already in ascending FrameID
// order — used by tests asserting the ordering invariant (spec.md §8.4).
func (b *Batch) IsSortedByFrameID() bool {
	return sort.SliceIsSorted(b.Frames, func(i, j int) bool {
		return b.Frames[i].FrameID < b.Frames[j].FrameID
	})
}
