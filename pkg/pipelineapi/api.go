// Package pipelineapi is the public surface external callers use to drive
// the pipeline (spec.md §6): init/start/submit/get/stop plus observability.
package pipelineapi

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/coordinator"
	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/memmonitor"
	"github.com/MrWwei/highway-event-pipeline/internal/rendezvous"
	"github.com/MrWwei/highway-event-pipeline/internal/stage"
)

// Status is the taxonomy spec.md §6 assigns to Get/GetWithTimeout/TryGet.
type Status int

const (
	StatusSuccess Status = iota
	StatusPending
	StatusTimeout
	StatusNotFound
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusPending:
		return "Pending"
	case StatusTimeout:
		return "Timeout"
	case StatusNotFound:
		return "NotFound"
	case StatusStopped:
		return "Stopped"
	default:
		return "Error"
	}
}

// Result is the record spec.md §6 describes:
// { status, frame_id, detections, filtered_box, has_filtered_box, mask?, source?, roi }.
type Result struct {
	Status Status
	FrameID uint64

	Detections      []core.Detection
	Tracks          []core.Track
	PerObjectStatus map[int]core.ObjectStatus
	HasFilteredBox  bool
	FilteredBox     core.Box

	Mask       []byte
	MaskWidth  int
	MaskHeight int
	Source     image.Image
	ROI        core.Rect
}

// Pipeline is the handle returned by Init. It owns no concurrency of its
// own beyond a mutex guarding ChangeParams; all runtime concurrency lives
// in internal/coordinator.
type Pipeline struct {
	mu    sync.Mutex
	cfg   core.PipelineConfig
	procs coordinator.Processors
	co    *coordinator.Coordinator
}

// Init validates cfg, wires the coordinator, and returns a handle in the
// not-yet-started state. procs supplies the five inference-engine-backed
// stage Processors (pkg/engine contracts); a nil entry is fine for a
// disabled stage.
func Init(cfg core.PipelineConfig, procs coordinator.Processors) (*Pipeline, error) {
	co, err := coordinator.New(cfg, procs)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, procs: procs, co: co}, nil
}

// Start brings the pipeline up.
func (p *Pipeline) Start() error {
	return p.co.Start()
}

// Submit assigns a monotonic frame_id to img and blocks until the Batch
// Buffer accepts it or add_timeout_ms elapses.
func (p *Pipeline) Submit(img image.Image) (uint64, error) {
	return p.submit(img)
}

// SubmitMove is semantically identical to Submit; Go has no ownership
// transfer to express separately from a plain assignment, so both verbs
// resolve to the same call (spec.md §6 distinguishes them only at the
// language-binding boundary, which this core does not implement).
func (p *Pipeline) SubmitMove(img image.Image) (uint64, error) {
	return p.submit(img)
}

func (p *Pipeline) submit(img image.Image) (uint64, error) {
	return p.co.Submit(&core.Frame{SourceImage: img})
}

// Get blocks until frameID's result is ready or get_timeout_ms elapses.
func (p *Pipeline) Get(frameID uint64) Result {
	return p.GetWithTimeout(frameID, time.Duration(p.cfg.GetTimeoutMS)*time.Millisecond)
}

// GetWithTimeout is Get with an explicit deadline.
func (p *Pipeline) GetWithTimeout(frameID uint64, timeout time.Duration) Result {
	return toResult(frameID, p.co.Get(frameID, timeout))
}

// TryGet is the non-blocking variant of Get.
func (p *Pipeline) TryGet(frameID uint64) Result {
	return toResult(frameID, p.co.TryGet(frameID))
}

func toResult(frameID uint64, res rendezvous.Result) Result {
	switch res.Status {
	case rendezvous.StatusSuccess:
		f := res.Frame
		return Result{
			Status: StatusSuccess, FrameID: f.FrameID,
			Detections: f.Detections, Tracks: f.Tracks, PerObjectStatus: f.PerObjectStatus,
			HasFilteredBox: f.HasFilteredBox, FilteredBox: f.FilteredBox,
			Mask: f.Mask, MaskWidth: f.MaskWidth, MaskHeight: f.MaskHeight,
			Source: f.SourceImage, ROI: f.ROI,
		}
	case rendezvous.StatusTimeout:
		return Result{Status: StatusTimeout, FrameID: frameID}
	case rendezvous.StatusNotFound:
		return Result{Status: StatusNotFound, FrameID: frameID}
	case rendezvous.StatusStopped:
		return Result{Status: StatusStopped, FrameID: frameID}
	default:
		return Result{Status: StatusError, FrameID: frameID}
	}
}

// ChangeParams replaces the mutable tunables of cfg — stage thresholds and
// the event stage's lane-geometry split — in place. Model paths, stage
// enablement, thread counts, and connector capacities are fixed at Init
// (changing any of those needs a new Pipeline, since they shape the
// coordinator's wiring graph), so a request to change one is rejected.
func (p *Pipeline) ChangeParams(cfg core.PipelineConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg.SegModel.ModelPath != p.cfg.SegModel.ModelPath ||
		cfg.DetectModel.ModelPath != p.cfg.DetectModel.ModelPath ||
		cfg.TrackModel.ModelPath != p.cfg.TrackModel.ModelPath ||
		cfg.ParkModel.ModelPath != p.cfg.ParkModel.ModelPath {
		return fmt.Errorf("%w: model paths are immutable once started", core.ErrInvalidConfig)
	}
	if cfg.EnabledStages() != p.cfg.EnabledStages() {
		return fmt.Errorf("%w: stage enablement is immutable once started", core.ErrInvalidConfig)
	}
	if cfg.ThreadsSeg != p.cfg.ThreadsSeg || cfg.ThreadsMask != p.cfg.ThreadsMask ||
		cfg.ThreadsDetect != p.cfg.ThreadsDetect || cfg.ThreadsTrack != p.cfg.ThreadsTrack ||
		cfg.ThreadsEvent != p.cfg.ThreadsEvent || cfg.ConnectorCaps != p.cfg.ConnectorCaps {
		return fmt.Errorf("%w: thread counts and connector capacities are immutable once started", core.ErrInvalidConfig)
	}

	p.cfg.SegModel.Confidence = cfg.SegModel.Confidence
	p.cfg.DetectModel.Confidence = cfg.DetectModel.Confidence
	p.cfg.DetectModel.NMSThresh = cfg.DetectModel.NMSThresh
	p.cfg.TrackModel.Confidence = cfg.TrackModel.Confidence

	if ep, ok := p.procs.Event.(*stage.EventProcessor); ok && cfg.ParkModel.Params != nil {
		if frac, ok := cfg.ParkModel.Params["emergency_lane_fraction"].(float64); ok && frac > 0 && frac < 1 {
			ep.EmergencyLaneFraction = frac
		}
	}
	return nil
}

// Stop tears the pipeline down.
func (p *Pipeline) Stop() {
	p.co.Stop()
}

// StatusString renders pipeline_status_string() (spec.md §6).
func (p *Pipeline) StatusString() string {
	return p.co.StatusString()
}

// StageCounters returns the per-stage processed-batch counters.
func (p *Pipeline) StageCounters() map[string]uint64 {
	return p.co.StageStats()
}

// RunID returns the identifier this run's log lines and metrics are
// correlated under.
func (p *Pipeline) RunID() string {
	return p.co.RunID()
}

// MemoryStats returns a fresh process-memory sample (spec.md §9 supplement:
// get_current_memory_stats()).
func (p *Pipeline) MemoryStats() memmonitor.Stats {
	return p.co.MemoryStats()
}

// IsMemoryLeakDetected reports whether the pipeline has observed a
// sustained memory growth rate past its configured threshold since Start
// (spec.md §9 supplement: is_memory_leak_detected()).
func (p *Pipeline) IsMemoryLeakDetected() bool {
	return p.co.IsMemoryLeakDetected()
}

// SetMemoryLeakThreshold replaces the growth-rate threshold, in MB/minute,
// a sustained climb must exceed to be flagged (spec.md §9 supplement:
// set_memory_leak_threshold()).
func (p *Pipeline) SetMemoryLeakThreshold(mbPerMin float64) {
	p.co.SetMemoryLeakThreshold(mbPerMin)
}
