package stage

import (
	"image"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
)

// DetectionProcessor implements stage 3 (spec.md §4.7.3). Detections are
// emitted in ROI-local coordinates; the tracking stage is the one place
// that maps them into source-absolute coordinates (the convention this
// implementation picked for the split the original source left ambiguous —
// see DESIGN.md).
type DetectionProcessor struct {
	Engine engine.DetectEngine
	Pool   *workerpool.Pool
}

// NewDetectionProcessor constructs the processor with its engine handle and
// the crop fan-out worker pool owned by this stage.
func NewDetectionProcessor(eng engine.DetectEngine, pool *workerpool.Pool) *DetectionProcessor {
	return &DetectionProcessor{Engine: eng, Pool: pool}
}

func (p *DetectionProcessor) Process(batch *core.Batch) error {
	crops := make([]image.Image, len(batch.Frames))
	futures := make([]*workerpool.Future, len(batch.Frames))
	for i, f := range batch.Frames {
		idx, frame := i, f
		fut, err := p.Pool.Submit(func() (any, error) {
			crops[idx] = cropTo(frame.SourceImage, frame.ROI)
			return nil, nil
		})
		if err != nil {
			return err
		}
		futures[i] = fut
	}
	for _, fut := range futures {
		if _, err := fut.Wait(); err != nil {
			return err
		}
	}

	results, err := p.Engine.Forward(crops)
	if err != nil {
		return err
	}

	for i, f := range batch.Frames {
		if i >= len(results) {
			continue
		}
		boxes := results[i]
		dets := make([]core.Detection, len(boxes))
		for j, b := range boxes {
			dets[j] = core.Detection{
				Box: core.Box{
					Left: b.Left, Top: b.Top, Right: b.Right, Bottom: b.Bottom,
				},
				Confidence: b.Confidence,
				Class:      b.Class,
				TrackID:    -1,
			}
		}
		f.Detections = dets
	}
	return nil
}

// cropTo returns the sub-image of src bounded by roi, clamped to src's own
// bounds. A zero-area roi falls back to the whole image.
func cropTo(src image.Image, roi core.Rect) image.Image {
	b := src.Bounds()
	if roi.W <= 0 || roi.H <= 0 {
		return src
	}
	rect := image.Rect(b.Min.X+roi.X, b.Min.Y+roi.Y, b.Min.X+roi.X+roi.W, b.Min.Y+roi.Y+roi.H).Intersect(b)
	if rect.Empty() {
		return src
	}
	if sub, ok := src.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			dst.Set(x, y, src.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return dst
}
