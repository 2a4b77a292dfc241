// Package stage implements the abstract producer/consumer stage (spec.md
// §4.6) and the five concrete stages built on it (§4.7).
package stage

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/connector"
	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/log"
	"github.com/MrWwei/highway-event-pipeline/internal/metrics"
)

// Processor is the stage-specific computation a Stage drives. Process must
// uphold whatever ordering requirement its stage documents, and must never
// let a panic escape — Stage recovers defensively, but a Processor that
// relies on that is already behaving outside contract.
type Processor interface {
	Process(batch *core.Batch) error
}

// Stage pulls Batches off its input Connector, hands each to a Processor,
// and pushes the result onto its output Connector. It owns no state beyond
// its own lifecycle and observability counters; all domain logic lives in
// the Processor.
type Stage struct {
	name     string
	pipeline string
	index    core.StageName

	in  *connector.Connector
	out *connector.Connector

	numWorkers int
	processor  Processor
	log        *slog.Logger

	wg sync.WaitGroup

	processedBatches atomic.Uint64
	totalProcessNS   atomic.Uint64
}

// New constructs a Stage. numWorkers<=0 is treated as 1. pipeline labels the
// stage's Prometheus metrics; it may be empty.
func New(pipeline, name string, index core.StageName, in, out *connector.Connector, numWorkers int, processor Processor) *Stage {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Stage{
		name:       name,
		pipeline:   pipeline,
		index:      index,
		in:         in,
		out:        out,
		numWorkers: numWorkers,
		processor:  processor,
		log:        log.ForStage(pipeline, name),
	}
}

// Name returns the stage's observability label.
func (s *Stage) Name() string {
	return s.name
}

// Start spawns numWorkers goroutines, each running the pull-process-push
// loop until the input connector closes.
func (s *Stage) Start() {
	s.wg.Add(s.numWorkers)
	for i := 0; i < s.numWorkers; i++ {
		go s.workerLoop()
	}
}

// Stop closes the input connector (which wakes and eventually exits every
// worker once drained), joins the workers, then closes the output
// connector so downstream consumers observe shutdown in turn.
func (s *Stage) Stop() {
	s.in.Shutdown()
	s.wg.Wait()
	s.out.Shutdown()
}

// Enqueue pushes a Batch onto this stage's input connector.
func (s *Stage) Enqueue(b *core.Batch) error {
	return s.in.Send(b)
}

// DequeueDone pulls the next completed Batch off this stage's output
// connector.
func (s *Stage) DequeueDone() (*core.Batch, error) {
	return s.out.Recv()
}

func (s *Stage) workerLoop() {
	defer s.wg.Done()
	for {
		batch, err := s.in.Recv()
		if err != nil {
			return
		}
		s.process(batch)
	}
}

func (s *Stage) process(batch *core.Batch) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("stage: processor panicked, dropping batch",
				"batch_id", batch.BatchID, "recovered", r)
		}
	}()

	batch.MarkStarted()
	start := time.Now()
	err := s.processor.Process(batch)
	elapsed := time.Since(start)
	metrics.StageLatencySeconds.WithLabelValues(s.pipeline, s.name).Observe(elapsed.Seconds())

	if err != nil {
		s.log.Warn("stage: batch processing failed, dropping batch",
			"batch_id", batch.BatchID, "err", err)
		metrics.BatchesDroppedTotal.WithLabelValues(s.pipeline, s.name).Inc()
		return
	}

	batch.StageDone[s.index] = true
	for _, f := range batch.Frames {
		f.StageDone[s.index] = true
	}
	s.processedBatches.Add(1)
	s.totalProcessNS.Add(uint64(elapsed.Nanoseconds()))
	metrics.FramesProcessedTotal.WithLabelValues(s.pipeline, s.name).Add(float64(len(batch.Frames)))

	if err := s.out.Send(batch); err != nil {
		s.log.Debug("stage: output connector closed, dropping processed batch",
			"batch_id", batch.BatchID)
	}
}

// ProcessedBatches reports how many batches this stage has successfully
// completed, for observability.
func (s *Stage) ProcessedBatches() uint64 {
	return s.processedBatches.Load()
}

// AvgMS reports the mean processing time in milliseconds across every
// successfully processed batch.
func (s *Stage) AvgMS() float64 {
	n := s.processedBatches.Load()
	if n == 0 {
		return 0
	}
	return float64(s.totalProcessNS.Load()) / float64(n) / float64(time.Millisecond)
}

// PendingQueueSize reports how many Batches are queued on the input
// connector awaiting a worker.
func (s *Stage) PendingQueueSize() int {
	return s.in.PendingLen()
}
