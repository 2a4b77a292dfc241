package stage

import (
	"log/slog"
	"sync"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
)

// TrackingProcessor implements stage 4 (spec.md §4.7.4). It is
// order-sensitive: each Batch is sorted by frame_id and its Frames are
// processed strictly in sequence, and a single mutex serializes every
// Batch against every other — the tracker's cross-frame state is
// intrinsically stateful and not safe for concurrent use, so even with
// threads_track > 1 only one Batch is ever inside Process at a time. That
// is the "one tracker handle, serialized" trade the spec calls out rather
// than a real per-worker handle pool.
type TrackingProcessor struct {
	Engine  engine.TrackEngine
	Parking engine.ParkingDetect

	mu sync.Mutex
}

// NewTrackingProcessor constructs the processor over its tracker and
// optional parking-stillness collaborator.
func NewTrackingProcessor(eng engine.TrackEngine, parking engine.ParkingDetect) *TrackingProcessor {
	return &TrackingProcessor{Engine: eng, Parking: parking}
}

func (p *TrackingProcessor) Process(batch *core.Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch.SortByFrameID()

	// A single frame's tracker/parking-detector failure must not sink the
	// whole batch (spec.md §7: "Inference failure for one frame ... mark
	// stage_done regardless; let the frame propagate with partial
	// fields"), mirroring process_image_tracking's per-image try/catch in
	// the original source (batch_object_tracking.cpp). Only a failure
	// that is not frame-scoped would abort the batch, and this processor
	// has none.
	for _, f := range batch.Frames {
		if err := p.processFrame(f); err != nil {
			slog.Warn("tracking: frame failed, propagating with partial fields",
				"frame_id", f.FrameID, "err", err)
		}
	}
	return nil
}

func (p *TrackingProcessor) processFrame(f *core.Frame) error {
	dets := make([]engine.BoxOut, len(f.Detections))
	for i, d := range f.Detections {
		dets[i] = engine.BoxOut{
			Left: d.Left, Top: d.Top, Right: d.Right, Bottom: d.Bottom,
			Confidence: d.Confidence, Class: d.Class,
		}
	}

	tracked, err := p.Engine.Track(dets, f.Width, f.Height)
	if err != nil {
		return err
	}

	// Detections are ROI-local (stage 3's convention); tracks are the
	// point at which the pipeline switches to source-absolute coordinates.
	for i := range tracked {
		tracked[i].Left += float64(f.ROI.X)
		tracked[i].Top += float64(f.ROI.Y)
		tracked[i].Right += float64(f.ROI.X)
		tracked[i].Bottom += float64(f.ROI.Y)
	}

	if p.Parking != nil {
		tracked, err = p.Parking.Detect(f.SourceImage, tracked)
		if err != nil {
			return err
		}
	}

	tracks := make([]core.Track, len(tracked))
	for i, t := range tracked {
		tracks[i] = core.Track{
			Box:      core.Box{Left: t.Left, Top: t.Top, Right: t.Right, Bottom: t.Bottom},
			TrackID:  t.TrackID,
			Class:    t.Class,
			IsStill:  t.IsStill,
			Centroid: [2]float64{(t.Left + t.Right) / 2, (t.Top + t.Bottom) / 2},
		}
		if i < len(f.Detections) {
			f.Detections[i].TrackID = t.TrackID
		}
	}
	f.Tracks = tracks
	return nil
}
