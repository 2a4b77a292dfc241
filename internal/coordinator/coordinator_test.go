package coordinator

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/MrWwei/highway-event-pipeline/internal/rendezvous"
	"github.com/MrWwei/highway-event-pipeline/internal/stage"
	"github.com/MrWwei/highway-event-pipeline/internal/workerpool"
	"github.com/MrWwei/highway-event-pipeline/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func allStagesProcessors() Processors {
	pool := workerpool.New(2)
	return Processors{
		Seg:    stage.NewSegmentationProcessor(&engine.MockSegEngine{GridW: 16, GridH: 16}, pool, 64, 48),
		Mask:   stage.NewMaskPostProcessProcessor(pool),
		Detect: stage.NewDetectionProcessor(&engine.MockDetectEngine{}, pool),
		Track:  stage.NewTrackingProcessor(&engine.MockTrackEngine{}, &engine.MockParkingDetect{}),
		Event:  stage.NewEventProcessor(0.8, 0),
	}
}

func allEnabledConfig() core.PipelineConfig {
	return core.PipelineConfig{
		EnableSeg: true, EnableMask: true, EnableDetect: true, EnableTrack: true, EnableEvent: true,
		ThreadsSeg: 1, ThreadsMask: 1, ThreadsDetect: 1, ThreadsTrack: 1, ThreadsEvent: 1,
		BatchFlushMS: 20, ReadyBatchCap: 4, AddTimeoutMS: 2000, GetTimeoutMS: 5000,
	}
}

func TestSingleFrameHappyPath(t *testing.T) {
	co, err := New(allEnabledConfig(), allStagesProcessors())
	require.NoError(t, err)
	require.NoError(t, co.Start())
	defer co.Stop()

	id, err := co.Submit(&core.Frame{SourceImage: solidImage(1920, 1080)})
	require.NoError(t, err)

	res := co.Get(id, 10*time.Second)
	require.Equal(t, rendezvous.StatusSuccess, res.Status)
	assert.True(t, res.Frame.AllDone(co.enabled))
}

func TestDisabledStagesPassThrough(t *testing.T) {
	cfg := core.PipelineConfig{
		EnableSeg: true,
		ThreadsSeg: 1, ThreadsMask: 1, ThreadsDetect: 1, ThreadsTrack: 1, ThreadsEvent: 1,
		BatchFlushMS: 20, ReadyBatchCap: 4, AddTimeoutMS: 2000, GetTimeoutMS: 5000,
	}
	pool := workerpool.New(2)
	procs := Processors{Seg: stage.NewSegmentationProcessor(&engine.MockSegEngine{GridW: 8, GridH: 8}, pool, 32, 24)}

	co, err := New(cfg, procs)
	require.NoError(t, err)
	require.NoError(t, co.Start())
	defer co.Stop()

	id, err := co.Submit(&core.Frame{SourceImage: solidImage(640, 480)})
	require.NoError(t, err)

	res := co.Get(id, 5*time.Second)
	require.Equal(t, rendezvous.StatusSuccess, res.Status)
	assert.Empty(t, res.Frame.Detections)
	assert.NotEmpty(t, res.Frame.Mask)
}

func TestOutOfOrderRetrieval(t *testing.T) {
	co, err := New(allEnabledConfig(), allStagesProcessors())
	require.NoError(t, err)
	require.NoError(t, co.Start())
	defer co.Stop()

	ids := make([]uint64, 0, 20)
	for i := 0; i < 20; i++ {
		id, err := co.Submit(&core.Frame{SourceImage: solidImage(320, 240)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	last := co.Get(ids[len(ids)-1], 10*time.Second)
	require.Equal(t, rendezvous.StatusSuccess, last.Status)

	first := co.Get(ids[0], 10*time.Second)
	require.Equal(t, rendezvous.StatusSuccess, first.Status)
}

func TestStopIsIdempotentAndQuick(t *testing.T) {
	co, err := New(allEnabledConfig(), allStagesProcessors())
	require.NoError(t, err)
	require.NoError(t, co.Start())

	done := make(chan struct{})
	go func() {
		co.Stop()
		co.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not complete within the bounded shutdown window")
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := core.PipelineConfig{EnableMask: true} // mask requires seg
	_, err := New(cfg, Processors{})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
