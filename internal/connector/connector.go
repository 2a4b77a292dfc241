// Package connector wires one stage's output to the next stage's input
// (spec.md §4.5). Each Connector is a named, bounded, shutdown-aware FIFO of
// *core.Batch — a thin collar around internal/queue.BoundedQueue so stages
// and the coordinator can log and meter handoffs by name instead of poking
// at an anonymous channel.
package connector

import (
	"log/slog"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/queue"
)

// Connector moves Batches between two adjacent stages (or between the batch
// buffer and the first stage, or the last stage and the rendezvous).
type Connector struct {
	name string
	q    *queue.BoundedQueue[*core.Batch]
}

// New creates a Connector named for the edge it represents (e.g.
// "seg->mask"), bounded by capacity.
func New(name string, capacity int) *Connector {
	return &Connector{
		name: name,
		q:    queue.New[*core.Batch](capacity),
	}
}

// Name returns the connector's wiring label, used in log fields and the
// coordinator's stage graph.
func (c *Connector) Name() string {
	return c.name
}

// Send hands a Batch to the downstream stage, blocking while the connector
// is full. It returns core.ErrQueueClosed once Shutdown has been called.
func (c *Connector) Send(b *core.Batch) error {
	if err := c.q.Send(b); err != nil {
		slog.Debug("connector: send rejected", "connector", c.name, "err", err)
		return err
	}
	return nil
}

// Recv blocks for the next Batch, draining whatever remains after Shutdown
// before returning core.ErrQueueClosed.
func (c *Connector) Recv() (*core.Batch, error) {
	return c.q.Recv()
}

// Shutdown is idempotent and wakes any blocked Send/Recv.
func (c *Connector) Shutdown() {
	c.q.Shutdown()
}

// PendingLen reports the number of Batches currently queued on this edge,
// for per-stage pending_queue_size observability (spec.md §4.6).
func (c *Connector) PendingLen() int {
	return c.q.Size()
}
