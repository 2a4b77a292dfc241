package stage

import (
	"image"
	"image/color"
	"testing"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSegmentationProcessorFillsMaskAndResizedInputs(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Stop()

	p := NewSegmentationProcessor(&engine.MockSegEngine{GridW: 32, GridH: 32}, pool, 128, 96)

	batch := core.NewBatch(1)
	require.NoError(t, batch.Add(&core.Frame{FrameID: 1, SourceImage: solidImage(640, 480, color.White)}))
	require.NoError(t, batch.Add(&core.Frame{FrameID: 2, SourceImage: solidImage(320, 240, color.Black)}))

	require.NoError(t, p.Process(batch))

	for _, f := range batch.Frames {
		assert.NotNil(t, f.SegInput)
		assert.Equal(t, 128, f.SegInput.Bounds().Dx())
		assert.Equal(t, 128, f.SegInput.Bounds().Dy())
		assert.NotNil(t, f.TrackingInput)
		assert.Equal(t, 32, f.MaskWidth)
		assert.Equal(t, 32, f.MaskHeight)
		assert.Len(t, f.Mask, 32*32)
	}
}

func TestResizeLongEdgePreservesAspectRatio(t *testing.T) {
	out := resizeLongEdge(solidImage(1000, 500, color.White), 100)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())

	out = resizeLongEdge(solidImage(500, 1000, color.White), 100)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())
}
