package stage

import (
	"testing"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPostProcessComputesROIFromLargestRegion(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Stop()
	p := NewMaskPostProcessProcessor(pool)

	const w, h = 10, 10
	mask := make([]byte, w*h)
	// small noise blob: single isolated pixel
	mask[0] = 1
	// large connected blob: rows 4..7, cols 4..7 (4x4 = 16 px)
	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			mask[y*w+x] = 1
		}
	}

	f := &core.Frame{Width: 100, Height: 100, Mask: mask, MaskWidth: w, MaskHeight: h}
	batch := core.NewBatch(1)
	require.NoError(t, batch.Add(f))

	require.NoError(t, p.Process(batch))

	assert.Equal(t, 40, f.ROI.X)
	assert.Equal(t, 40, f.ROI.Y)
	assert.Equal(t, 40, f.ROI.W)
	assert.Equal(t, 40, f.ROI.H)
	// the isolated noise pixel must have been zeroed by binarize
	assert.EqualValues(t, 0, f.Mask[0])
}

func TestMaskPostProcessFallsBackToFullFrameWhenNoRegion(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Stop()
	p := NewMaskPostProcessProcessor(pool)

	mask := make([]byte, 10*10)
	f := &core.Frame{Width: 200, Height: 150, Mask: mask, MaskWidth: 10, MaskHeight: 10}
	batch := core.NewBatch(1)
	require.NoError(t, batch.Add(f))

	require.NoError(t, p.Process(batch))
	assert.Equal(t, core.Rect{X: 0, Y: 0, W: 200, H: 150}, f.ROI)
}
