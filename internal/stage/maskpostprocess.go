package stage

import (
	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
)

// whiteThreshold is the label value treated as foreground ("white") by the
// connected-region search below.
const whiteThreshold = 1

// MaskPostProcessProcessor implements stage 2 (spec.md §4.7.2): keep the
// largest connected foreground region of the mask, binarize it, and derive
// frame.ROI from its bounding box rescaled into source coordinates.
type MaskPostProcessProcessor struct {
	Pool *workerpool.Pool
}

// NewMaskPostProcessProcessor constructs the processor over its own fan-out
// worker pool.
func NewMaskPostProcessProcessor(pool *workerpool.Pool) *MaskPostProcessProcessor {
	return &MaskPostProcessProcessor{Pool: pool}
}

func (p *MaskPostProcessProcessor) Process(batch *core.Batch) error {
	futures := make([]*workerpool.Future, 0, len(batch.Frames))
	for _, f := range batch.Frames {
		frame := f
		fut, err := p.Pool.Submit(func() (any, error) {
			processFrameMask(frame)
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
	return nil
}

func processFrameMask(f *core.Frame) {
	if f.MaskWidth == 0 || f.MaskHeight == 0 || len(f.Mask) == 0 {
		f.ROI = core.Rect{X: 0, Y: 0, W: f.Width, H: f.Height}
		return
	}

	region := largestConnectedRegion(f.Mask, f.MaskWidth, f.MaskHeight)
	if region == nil {
		f.ROI = core.Rect{X: 0, Y: 0, W: f.Width, H: f.Height}
		return
	}

	binarize(f.Mask, region)

	sx := float64(f.Width) / float64(f.MaskWidth)
	sy := float64(f.Height) / float64(f.MaskHeight)
	roi := core.Rect{
		X: int(float64(region.minX) * sx),
		Y: int(float64(region.minY) * sy),
		W: int(float64(region.maxX-region.minX+1) * sx),
		H: int(float64(region.maxY-region.minY+1) * sy),
	}
	if roi.W <= 0 || roi.H <= 0 {
		f.ROI = core.Rect{X: 0, Y: 0, W: f.Width, H: f.Height}
		return
	}
	f.ROI = roi
}

type region struct {
	pixels               []int
	minX, minY, maxX, maxY int
}

// largestConnectedRegion runs a 4-connectivity flood fill over every
// foreground pixel and returns the largest component found, or nil if the
// mask holds no foreground pixel.
func largestConnectedRegion(mask []byte, w, h int) *region {
	visited := make([]bool, len(mask))
	var best *region

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if visited[idx] || mask[idx] < whiteThreshold {
				continue
			}
			r := floodFill(mask, visited, w, h, x, y)
			if best == nil || len(r.pixels) > len(best.pixels) {
				best = r
			}
		}
	}
	return best
}

func floodFill(mask []byte, visited []bool, w, h, startX, startY int) *region {
	r := &region{minX: startX, minY: startY, maxX: startX, maxY: startY}
	stack := []int{startY*w + startX}
	visited[startY*w+startX] = true

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		r.pixels = append(r.pixels, idx)
		if x < r.minX {
			r.minX = x
		}
		if x > r.maxX {
			r.maxX = x
		}
		if y < r.minY {
			r.minY = y
		}
		if y > r.maxY {
			r.maxY = y
		}

		neighbors := [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}}
		for _, n := range neighbors {
			nx, ny := n[0], n[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			nidx := ny*w + nx
			if visited[nidx] || mask[nidx] < whiteThreshold {
				continue
			}
			visited[nidx] = true
			stack = append(stack, nidx)
		}
	}
	return r
}

// binarize zeroes every pixel not in the kept region, leaving the region's
// pixels at whiteThreshold.
func binarize(mask []byte, keep *region) {
	kept := make(map[int]struct{}, len(keep.pixels))
	for _, idx := range keep.pixels {
		kept[idx] = struct{}{}
	}
	for i := range mask {
		if _, ok := kept[i]; ok {
			mask[i] = whiteThreshold
		} else {
			mask[i] = 0
		}
	}
}
