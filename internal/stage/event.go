package stage

import (
	"sync"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
)

// trajectoryCap bounds how many centroids are retained per track_id in the
// event stage's history (spec.md §4.7.5: "append-only with a per-track
// cap").
const trajectoryCap = 64

// trajectoryStore is the event stage's append-only, per-track centroid
// history, protected by a single mutex per spec.md §5.
type trajectoryStore struct {
	mu      sync.Mutex
	history map[int][][2]float64
}

func newTrajectoryStore() *trajectoryStore {
	return &trajectoryStore{history: make(map[int][][2]float64)}
}

func (s *trajectoryStore) append(trackID int, centroid [2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[trackID], centroid)
	if len(h) > trajectoryCap {
		h = h[len(h)-trajectoryCap:]
	}
	s.history[trackID] = h
}

func (s *trajectoryStore) len(trackID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[trackID])
}

// EventProcessor implements stage 5 (spec.md §4.7.5). The lane-geometry
// derivation and the "minimum-width filtered box" heuristic are the
// placeholder of the real CV decision the spec leaves external (§1); this
// implementation derives a lane split from the frame's own ROI so the
// pipeline has a deterministic, testable status assignment without a real
// lane-geometry model.
type EventProcessor struct {
	traj *trajectoryStore

	// EmergencyLaneFraction is the fraction of the ROI's width, measured
	// from its left edge, treated as the ordinary lane; centroids past it
	// are considered to be in the emergency lane.
	EmergencyLaneFraction float64

	// MinFilteredWidth is the minimum box width considered for
	// has_filtered_box/filtered_box (spec.md §9); <=0 disables the
	// heuristic.
	MinFilteredWidth float64
}

// NewEventProcessor constructs the processor with its own trajectory store.
func NewEventProcessor(emergencyLaneFraction, minFilteredWidth float64) *EventProcessor {
	if emergencyLaneFraction <= 0 || emergencyLaneFraction >= 1 {
		emergencyLaneFraction = 0.8
	}
	return &EventProcessor{
		traj:                  newTrajectoryStore(),
		EmergencyLaneFraction: emergencyLaneFraction,
		MinFilteredWidth:      minFilteredWidth,
	}
}

func (p *EventProcessor) Process(batch *core.Batch) error {
	batch.SortByFrameID()
	for _, f := range batch.Frames {
		p.processFrame(f)
	}
	return nil
}

func (p *EventProcessor) processFrame(f *core.Frame) {
	if f.PerObjectStatus == nil {
		f.PerObjectStatus = make(map[int]core.ObjectStatus, len(f.Tracks))
	}

	laneBoundary := float64(f.ROI.X) + float64(f.ROI.W)*p.EmergencyLaneFraction

	var haveMin bool
	var minWidth float64
	var minBox core.Box

	for _, t := range f.Tracks {
		status := core.StatusNormal
		inEmergencyLane := t.Centroid[0] >= laneBoundary
		switch {
		case inEmergencyLane && t.IsStill:
			status = core.StatusParkingEmergencyLane
		case inEmergencyLane:
			status = core.StatusOccupyEmergencyLane
		case t.IsStill:
			status = core.StatusParkingLane
		}
		f.PerObjectStatus[t.TrackID] = status
		p.traj.append(t.TrackID, t.Centroid)

		if p.MinFilteredWidth <= 0 {
			continue
		}
		width := t.Right - t.Left
		if width < p.MinFilteredWidth {
			continue
		}
		if !haveMin || width < minWidth {
			haveMin = true
			minWidth = width
			minBox = t.Box
		}
	}

	if haveMin {
		f.HasFilteredBox = true
		f.FilteredBox = minBox
	}
}
