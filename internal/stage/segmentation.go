package stage

import (
	"image"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
)

// SegmentationProcessor implements stage 1 (spec.md §4.7.1): per-frame
// resize fanned out across pool, then one batched call into the
// segmentation engine.
type SegmentationProcessor struct {
	Engine  engine.SegEngine
	Pool    *workerpool.Pool
	SegSize int // fixed square edge, e.g. 1024
	TrackLE int // tracking_input long edge
}

// NewSegmentationProcessor constructs the processor with its engine handle
// and the resize worker pool owned by this stage.
func NewSegmentationProcessor(eng engine.SegEngine, pool *workerpool.Pool, segSize, trackLongEdge int) *SegmentationProcessor {
	if segSize <= 0 {
		segSize = 1024
	}
	if trackLongEdge <= 0 {
		trackLongEdge = 960
	}
	return &SegmentationProcessor{Engine: eng, Pool: pool, SegSize: segSize, TrackLE: trackLongEdge}
}

func (p *SegmentationProcessor) Process(batch *core.Batch) error {
	futures := make([]*workerpool.Future, 0, len(batch.Frames))
	for _, f := range batch.Frames {
		frame := f
		fut, err := p.Pool.Submit(func() (any, error) {
			b := frame.SourceImage.Bounds()
			frame.Width, frame.Height = b.Dx(), b.Dy()
			frame.SegInput = resizeSquare(frame.SourceImage, p.SegSize)
			frame.TrackingInput = resizeLongEdge(frame.SourceImage, p.TrackLE)
			return nil, nil
		})
		if err != nil {
			return err
		}
		futures = append(futures, fut)
	}
	for _, fut := range futures {
		if _, err := fut.Wait(); err != nil {
			return err
		}
	}

	inputs := make([]image.Image, len(batch.Frames))
	for i, f := range batch.Frames {
		inputs[i] = f.SegInput
	}
	grids, err := p.Engine.Predict(inputs)
	if err != nil {
		return err
	}
	for i, f := range batch.Frames {
		if i >= len(grids) {
			continue
		}
		f.Mask = grids[i].Labels
		f.MaskWidth = grids[i].Width
		f.MaskHeight = grids[i].Height
	}
	return nil
}

// resizeSquare produces a fixed edge×edge nearest-neighbor resize of src.
func resizeSquare(src image.Image, edge int) image.Image {
	return resizeTo(src, edge, edge)
}

// resizeLongEdge scales src so its longer side equals longEdge, preserving
// aspect ratio.
func resizeLongEdge(src image.Image, longEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return resizeTo(src, longEdge, longEdge)
	}
	var dw, dh int
	if w >= h {
		dw = longEdge
		dh = longEdge * h / w
	} else {
		dh = longEdge
		dw = longEdge * w / h
	}
	if dw <= 0 {
		dw = 1
	}
	if dh <= 0 {
		dh = 1
	}
	return resizeTo(src, dw, dh)
}

// resizeTo is a plain nearest-neighbor resize. No third-party image-resize
// library appears anywhere in the retrieved corpus, so this stays on the
// standard image package rather than inventing an ungrounded dependency.
func resizeTo(src image.Image, w, h int) image.Image {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw <= 0 || sh <= 0 {
		return dst
	}
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := sb.Min.X + x*sw/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
