package stage

import (
	"image/color"
	"testing"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionProcessorFillsDetectionsWithUnsetTrackID(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Stop()
	p := NewDetectionProcessor(&engine.MockDetectEngine{}, pool)

	f := &core.Frame{
		FrameID:     1,
		SourceImage: solidImage(640, 480, color.White),
		Width:       640, Height: 480,
		ROI: core.Rect{X: 10, Y: 10, W: 200, H: 200},
	}
	batch := core.NewBatch(1)
	require.NoError(t, batch.Add(f))

	require.NoError(t, p.Process(batch))

	require.Len(t, f.Detections, 1)
	assert.Equal(t, -1, f.Detections[0].TrackID)
	assert.InDelta(t, 0.9, f.Detections[0].Confidence, 1e-9)
}

func TestCropToFallsBackToWholeImageOnZeroROI(t *testing.T) {
	img := solidImage(100, 100, color.White)
	out := cropTo(img, core.Rect{})
	assert.Equal(t, img.Bounds(), out.Bounds())
}
