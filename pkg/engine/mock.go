package engine

import (
	"image"

	"github.com/MrWwei/highway-event-pipeline/internal/log"
)

// Mock engines give the pipeline something to run against in tests and in
// the cmd demo source (spec.md treats the real CNNs as external
// collaborators; these stand in for them without pulling in any model
// runtime).

// MockSegEngine returns one GridW×GridH label grid per input image (64×64
// when unset), with every pixel labeled foreground (1).
type MockSegEngine struct {
	GridW, GridH int
}

func (m *MockSegEngine) Predict(images []image.Image) ([]LabelGrid, error) {
	log.EngineLogger.WithField("frames", len(images)).Debug("seg engine: predict")
	w, h := m.GridW, m.GridH
	if w == 0 {
		w = 64
	}
	if h == 0 {
		h = 64
	}
	out := make([]LabelGrid, len(images))
	for i := range images {
		grid := make([]byte, w*h)
		for p := range grid {
			grid[p] = 1
		}
		out[i] = LabelGrid{Labels: grid, Width: w, Height: h}
	}
	return out, nil
}

// MockDetectEngine returns one fixed box per crop, useful for exercising
// the tracking and event stages without a real detector.
type MockDetectEngine struct{}

func (m *MockDetectEngine) Forward(crops []image.Image) ([][]BoxOut, error) {
	out := make([][]BoxOut, len(crops))
	for i, crop := range crops {
		b := crop.Bounds()
		out[i] = []BoxOut{{
			Left: 0, Top: 0,
			Right: float64(b.Dx()) / 2, Bottom: float64(b.Dy()) / 2,
			Confidence: 0.9, Class: 0,
		}}
	}
	return out, nil
}

// MockTrackEngine assigns sequential track ids, never re-identifying a
// detection across calls — enough to drive the tracking stage's plumbing.
type MockTrackEngine struct {
	next int
}

func (m *MockTrackEngine) Track(detections []BoxOut, width, height int) ([]TrackOut, error) {
	out := make([]TrackOut, len(detections))
	for i, d := range detections {
		m.next++
		out[i] = TrackOut{
			Left: d.Left, Top: d.Top, Right: d.Right, Bottom: d.Bottom,
			TrackID: m.next, Class: d.Class,
		}
	}
	return out, nil
}

// MockParkingDetect never flags a track as still.
type MockParkingDetect struct{}

func (m *MockParkingDetect) Detect(img image.Image, tracks []TrackOut) ([]TrackOut, error) {
	return tracks, nil
}
