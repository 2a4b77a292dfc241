package stage

import (
	"testing"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventAssignsStatusByLanePosition(t *testing.T) {
	p := NewEventProcessor(0.5, 0)

	f := &core.Frame{
		FrameID: 1,
		ROI:     core.Rect{X: 0, Y: 0, W: 100, H: 100},
		Tracks: []core.Track{
			{TrackID: 1, Centroid: [2]float64{10, 10}},  // left of boundary -> normal
			{TrackID: 2, Centroid: [2]float64{80, 10}},  // right of boundary -> occupy
			{TrackID: 3, Centroid: [2]float64{80, 10}, IsStill: true}, // right + still -> parking emergency
			{TrackID: 4, Centroid: [2]float64{10, 10}, IsStill: true}, // left + still -> parking lane
		},
	}
	batch := core.NewBatch(1)
	require.NoError(t, batch.Add(f))

	require.NoError(t, p.Process(batch))

	assert.Equal(t, core.StatusNormal, f.PerObjectStatus[1])
	assert.Equal(t, core.StatusOccupyEmergencyLane, f.PerObjectStatus[2])
	assert.Equal(t, core.StatusParkingEmergencyLane, f.PerObjectStatus[3])
	assert.Equal(t, core.StatusParkingLane, f.PerObjectStatus[4])
}

func TestEventFilteredBoxPicksNarrowestQualifyingTrack(t *testing.T) {
	p := NewEventProcessor(0.8, 5)

	f := &core.Frame{
		ROI: core.Rect{X: 0, Y: 0, W: 100, H: 100},
		Tracks: []core.Track{
			{TrackID: 1, Box: core.Box{Left: 0, Right: 4}},  // too narrow, excluded
			{TrackID: 2, Box: core.Box{Left: 0, Right: 6}},  // qualifies, width 6
			{TrackID: 3, Box: core.Box{Left: 0, Right: 20}}, // qualifies but wider
		},
	}
	batch := core.NewBatch(1)
	require.NoError(t, batch.Add(f))

	require.NoError(t, p.Process(batch))

	require.True(t, f.HasFilteredBox)
	assert.InDelta(t, 6, f.FilteredBox.Right-f.FilteredBox.Left, 1e-9)
}

func TestTrajectoryStoreCapsHistoryPerTrack(t *testing.T) {
	store := newTrajectoryStore()
	for i := 0; i < trajectoryCap+10; i++ {
		store.append(1, [2]float64{float64(i), 0})
	}
	assert.Equal(t, trajectoryCap, store.len(1))
}
