// Package coordinator wires the batch buffer, the five stages, their
// connectors, and the rendezvous into one running pipeline (spec.md §4.8).
package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWwei/highway-event-pipeline/internal/batchbuffer"
	"github.com/MrWwei/highway-event-pipeline/internal/connector"
	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/log"
	"github.com/MrWwei/highway-event-pipeline/internal/memmonitor"
	"github.com/MrWwei/highway-event-pipeline/internal/metrics"
	"github.com/MrWwei/highway-event-pipeline/internal/rendezvous"
	"github.com/MrWwei/highway-event-pipeline/internal/stage"
)

// State is the Coordinator's own lifecycle, distinct from TaskState in the
// teacher's task package only in naming.
type State string

const (
	StateCreated  State = "created"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Processors bundles the five stage Processor implementations the
// Coordinator wires up. A nil entry for a disabled stage is never
// dereferenced.
type Processors struct {
	Seg    stage.Processor
	Mask   stage.Processor
	Detect stage.Processor
	Track  stage.Processor
	Event  stage.Processor
}

// Coordinator owns the Batch Buffer, every enabled Stage, the connectors
// between them, the final-sink forwarder, and the Rendezvous. Disabled
// stages are simply absent from the wiring graph: the connector that would
// have been their input becomes, instead, the input of the first
// downstream enabled stage (or the final connector if none remain) —
// spec.md §4.5's "the Coordinator wires around it".
type Coordinator struct {
	cfg     core.PipelineConfig
	runID   string
	enabled [5]bool

	runLog *slog.Logger
	memMon *memmonitor.Monitor

	buffer *batchbuffer.Buffer
	stages [5]*stage.Stage // indexed by core.StageName; nil if disabled

	// connIn[k] is stage k's input connector, built regardless of whether
	// stage k is enabled, so the reduced wiring graph can still be
	// expressed by the same indices the config uses.
	connIn     [5]*connector.Connector
	finalConn  *connector.Connector
	rendezvous *rendezvous.Rendezvous

	mu    sync.Mutex
	state State

	bufferFwdWg sync.WaitGroup
	sinkWg      sync.WaitGroup

	nextFrameID uint64
	idMu        sync.Mutex
}

// New validates cfg and builds a Coordinator. It does not start anything.
func New(cfg core.PipelineConfig, procs Processors) (*Coordinator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	c := &Coordinator{
		cfg:        cfg,
		runID:      runID,
		runLog:     log.ForRun(runID),
		memMon:     memmonitor.New(time.Duration(cfg.MemMonitorIntervalMS) * time.Millisecond),
		enabled:    cfg.EnabledStages(),
		buffer:     batchbuffer.New(cfg.ReadyBatchCap, time.Duration(cfg.BatchFlushMS)*time.Millisecond),
		rendezvous: rendezvous.New(cfg.RendezvousSoftCap),
		state:      StateCreated,
	}
	c.memMon.SetLeakThreshold(cfg.MemLeakThresholdMBPerMin)

	capsIn := [5]int{
		cfg.ConnectorCaps.IngressToSeg,
		cfg.ConnectorCaps.SegToMask,
		cfg.ConnectorCaps.MaskToDetect,
		cfg.ConnectorCaps.DetectToTrack,
		cfg.ConnectorCaps.TrackToEvent,
	}
	names := [5]string{"ingress->seg", "seg->mask", "mask->detect", "detect->track", "track->event"}
	for k := 0; k < 5; k++ {
		c.connIn[k] = connector.New(names[k], capsIn[k])
	}
	c.finalConn = connector.New("any->final", cfg.ConnectorCaps.AnyToFinal)

	threads := [5]int{cfg.ThreadsSeg, cfg.ThreadsMask, cfg.ThreadsDetect, cfg.ThreadsTrack, cfg.ThreadsEvent}
	stageNames := [5]string{"seg", "mask", "detect", "track", "event"}
	processors := [5]stage.Processor{procs.Seg, procs.Mask, procs.Detect, procs.Track, procs.Event}

	for k := core.StageName(0); k < 5; k++ {
		if !c.enabled[k] {
			continue
		}
		out := c.outputConnectorFor(int(k))
		c.stages[k] = stage.New(cfg.Name, stageNames[k], k, c.connIn[k], out, threads[k], processors[k])
	}

	return c, nil
}

// outputConnectorFor returns the connector stage k (0-indexed) should push
// to: the input connector of the next enabled stage, or the final
// connector if none remain.
func (c *Coordinator) outputConnectorFor(k int) *connector.Connector {
	for n := k + 1; n < 5; n++ {
		if c.enabled[n] {
			return c.connIn[n]
		}
	}
	return c.finalConn
}

// firstEnabledInput returns the connector the batch buffer's forwarder
// should push onto: the first enabled stage's input, or the final
// connector if every stage is disabled.
func (c *Coordinator) firstEnabledInput() *connector.Connector {
	for k := 0; k < 5; k++ {
		if c.enabled[k] {
			return c.connIn[k]
		}
	}
	return c.finalConn
}

// Start brings the pipeline up in reverse dependency order (event first,
// ingress last) so nothing downstream is missing when an upstream stage's
// first batch could arrive, per spec.md §4.8. The config was already
// validated by New.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCreated && c.state != StateStopped {
		return fmt.Errorf("%w: coordinator already started", core.ErrInvalidConfig)
	}
	c.state = StateStarting
	metrics.PipelineStatus.WithLabelValues(c.cfg.Name).Set(metrics.PipelineStatusStarting)

	for k := 4; k >= 0; k-- {
		if c.stages[k] != nil {
			c.stages[k].Start()
		}
	}

	c.buffer.Start()
	c.bufferFwdWg.Add(1)
	go c.bufferForwardLoop()

	c.sinkWg.Add(1)
	go c.sinkLoop()

	c.memMon.Start()

	c.state = StateRunning
	metrics.PipelineStatus.WithLabelValues(c.cfg.Name).Set(metrics.PipelineStatusRunning)
	c.runLog.Info("coordinator: pipeline started",
		"enable_seg", c.enabled[core.StageSeg], "enable_mask", c.enabled[core.StageMask],
		"enable_detect", c.enabled[core.StageDetect], "enable_track", c.enabled[core.StageTrack],
		"enable_event", c.enabled[core.StageEvent])
	return nil
}

// bufferForwardLoop drains ready Batches off the Batch Buffer and pushes
// them onto the first enabled stage's input (or straight to the final
// connector if every stage is disabled).
func (c *Coordinator) bufferForwardLoop() {
	defer c.bufferFwdWg.Done()
	dst := c.firstEnabledInput()
	for {
		batch, ok := c.buffer.Take()
		if !ok {
			return
		}
		if err := dst.Send(batch); err != nil {
			c.runLog.Debug("coordinator: dropping batch, downstream connector closed", "batch_id", batch.BatchID)
			return
		}
	}
}

// sinkLoop is the final-sink consumer (spec.md §4.8): drains the last
// connector and publishes each Frame into the Rendezvous.
func (c *Coordinator) sinkLoop() {
	defer c.sinkWg.Done()
	for {
		batch, err := c.finalConn.Recv()
		if err != nil {
			return
		}
		for _, f := range batch.Frames {
			c.rendezvous.Publish(f.FrameID, f)
		}
		metrics.RendezvousPending.WithLabelValues(c.cfg.Name).Set(float64(c.rendezvous.Len()))
	}
}

// Submit assigns the next monotonic frame_id, pushes the Frame into the
// Batch Buffer, and returns the id. It returns core.ErrBackpressured if the
// buffer is saturated past addTimeout, and core.ErrStopped if the pipeline
// was stopped meanwhile (Add on a stopped buffer returns false).
func (c *Coordinator) Submit(f *core.Frame) (uint64, error) {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return 0, core.ErrStopped
	}
	c.mu.Unlock()

	f.FrameID = c.allocFrameID()

	err := c.buffer.AddWithTimeout(f, time.Duration(c.cfg.AddTimeoutMS)*time.Millisecond)
	switch {
	case err == nil:
		metrics.FramesAcceptedTotal.WithLabelValues(c.cfg.Name).Inc()
		return f.FrameID, nil
	case errors.Is(err, core.ErrTimeout):
		return f.FrameID, core.ErrBackpressured
	default:
		return f.FrameID, core.ErrStopped
	}
}

func (c *Coordinator) allocFrameID() uint64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.nextFrameID++
	return c.nextFrameID
}

// Get blocks for up to timeout for frameID's result.
func (c *Coordinator) Get(frameID uint64, timeout time.Duration) rendezvous.Result {
	return c.rendezvous.Wait(frameID, timeout)
}

// TryGet is the non-blocking variant of Get.
func (c *Coordinator) TryGet(frameID uint64) rendezvous.Result {
	return c.rendezvous.TryGet(frameID)
}

// Stop tears the pipeline down: stop the buffer (unblocking Add/Take),
// stop every enabled stage (which joins its workers and closes its output
// connector), join the buffer forwarder and the sink consumer, then signal
// the Rendezvous. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.state == StateStopped || c.state == StateCreated {
		c.mu.Unlock()
		return
	}
	c.state = StateStopping
	c.mu.Unlock()
	metrics.PipelineStatus.WithLabelValues(c.cfg.Name).Set(metrics.PipelineStatusStopping)

	c.buffer.Stop()
	c.bufferFwdWg.Wait()

	for k := 0; k < 5; k++ {
		if c.stages[k] != nil {
			c.stages[k].Stop()
		}
	}
	c.finalConn.Shutdown()
	c.sinkWg.Wait()

	c.rendezvous.Shutdown()
	c.memMon.Stop()

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	metrics.PipelineStatus.WithLabelValues(c.cfg.Name).Set(metrics.PipelineStatusStopped)
	c.runLog.Info("coordinator: pipeline stopped")
}

// RunID returns the coordinator's unique run identifier, generated once at
// New and stable for the Coordinator's lifetime — used to correlate log
// lines and metrics across a single pipeline run.
func (c *Coordinator) RunID() string {
	return c.runID
}

// State returns the Coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StatusString renders a one-line human-readable snapshot, the basis for
// pipeline_status_string() in pkg/pipelineapi (spec.md §6).
func (c *Coordinator) StatusString() string {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	names := [5]string{"seg", "mask", "detect", "track", "event"}
	memStats := c.memMon.CurrentStats()
	metrics.ProcessMemoryMB.WithLabelValues(c.cfg.Name).Set(float64(memStats.ProcessMemoryMB))
	leak := c.memMon.IsLeakDetected()
	if leak {
		metrics.MemoryLeakDetected.WithLabelValues(c.cfg.Name).Set(1)
	} else {
		metrics.MemoryLeakDetected.WithLabelValues(c.cfg.Name).Set(0)
	}
	s := fmt.Sprintf("run_id=%s state=%s ready_batches=%d rendezvous=%d process_memory_mb=%d leak_detected=%t",
		c.runID, state, c.buffer.ReadyLen(), c.rendezvous.Len(), memStats.ProcessMemoryMB, leak)
	for k := 0; k < 5; k++ {
		if c.stages[k] == nil {
			continue
		}
		pending := c.stages[k].PendingQueueSize()
		metrics.StageQueueDepth.WithLabelValues(c.cfg.Name, names[k]).Set(float64(pending))
		s += fmt.Sprintf(" %s{processed=%d avg_ms=%.2f pending=%d}",
			names[k], c.stages[k].ProcessedBatches(), c.stages[k].AvgMS(), pending)
	}
	return s
}

// MemoryStats returns a fresh, immediate process-memory sample — the Go
// equivalent of BatchPipelineManager::get_current_memory_stats().
func (c *Coordinator) MemoryStats() memmonitor.Stats {
	return c.memMon.CurrentStats()
}

// IsMemoryLeakDetected reports whether memmonitor has flagged a sustained
// growth-rate leak since Start — the equivalent of
// BatchPipelineManager::is_memory_leak_detected().
func (c *Coordinator) IsMemoryLeakDetected() bool {
	return c.memMon.IsLeakDetected()
}

// SetMemoryLeakThreshold replaces the growth-rate threshold (MB/minute) —
// the equivalent of BatchPipelineManager::set_memory_leak_threshold().
func (c *Coordinator) SetMemoryLeakThreshold(mbPerMin float64) {
	c.memMon.SetLeakThreshold(mbPerMin)
}

// StageStats returns the per-stage processed-batch counters for
// observability, keyed by stage name.
func (c *Coordinator) StageStats() map[string]uint64 {
	names := [5]string{"seg", "mask", "detect", "track", "event"}
	out := make(map[string]uint64, 5)
	for k := 0; k < 5; k++ {
		if c.stages[k] == nil {
			continue
		}
		out[names[k]] = c.stages[k].ProcessedBatches()
	}
	return out
}
