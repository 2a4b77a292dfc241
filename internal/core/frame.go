package core

import "image"

// ObjectStatus is the closed tag set a track can be assigned by the event
// determination stage.
type ObjectStatus int

const (
	StatusUnknown ObjectStatus = iota
	StatusNormal
	StatusParkingLane
	StatusParkingEmergencyLane
	StatusOccupyEmergencyLane
	StatusWalkHighway
	StatusHighwayJam
	StatusTrafficAccident
)

func (s ObjectStatus) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusParkingLane:
		return "parking-lane"
	case StatusParkingEmergencyLane:
		return "parking-emergency-lane"
	case StatusOccupyEmergencyLane:
		return "occupy-emergency-lane"
	case StatusWalkHighway:
		return "walk-highway"
	case StatusHighwayJam:
		return "highway-jam"
	case StatusTrafficAccident:
		return "traffic-accident"
	default:
		return "unknown"
	}
}

// Box is an axis-aligned bounding box. Coordinates are in whatever frame
// the producing stage documents (ROI-local for detections, source-absolute
// once tracking has mapped them — see internal/stage/tracking.go).
type Box struct {
	Left, Top, Right, Bottom float64
}

// Rect is an image-coordinate rectangle used for the mask ROI.
type Rect struct {
	X, Y, W, H int
}

// FullFrame reports whether r covers the given image dimensions, i.e. it is
// the "roi = full frame" fallback of spec.md §4.7.2.
func (r Rect) FullFrame(width, height int) bool {
	return r.X == 0 && r.Y == 0 && r.W == width && r.H == height
}

// Detection is a single bounding box produced by the detection stage.
// TrackID is unset (-1) until the tracking stage assigns one.
type Detection struct {
	Box
	Confidence float64
	Class      int
	TrackID    int
}

// Track is a Detection promoted with a stable identity by the tracking
// stage, plus the stillness flag the parking-detection collaborator writes.
type Track struct {
	Box
	TrackID  int
	Class    int
	IsStill  bool
	Centroid [2]float64
}

// Frame is the unit of work created at ingress and mutated in place as it
// advances through the five stages. It becomes read-only the moment it is
// published to the Rendezvous (internal/rendezvous).
type Frame struct {
	FrameID uint64

	SourceImage image.Image
	Width       int
	Height      int

	// SegInput is a fixed-size downscale of SourceImage destined for the
	// segmentation engine; TrackingInput is a long-edge downscale destined
	// for the tracking engine. Both are populated by the segmentation stage.
	SegInput      image.Image
	TrackingInput image.Image

	// Mask is the segmentation label grid; MaskWidth/MaskHeight are its
	// dimensions (independent of SourceImage's, since segmentation runs on
	// SegInput). Filled by the segmentation stage, mutated in place by the
	// mask post-processing stage.
	Mask       []byte
	MaskWidth  int
	MaskHeight int

	// ROI is computed by the mask post-processing stage from the cleaned
	// mask, rescaled into SourceImage coordinates. Detection crops to it.
	ROI Rect

	// Detections is filled by the detection stage, in ROI-local coordinates.
	Detections []Detection

	// Tracks is filled by the tracking stage. TrackID is stable across
	// frames within a tracker's lifetime; coordinates are source-absolute.
	Tracks []Track

	// PerObjectStatus maps Tracks[i].TrackID to its assigned status, filled
	// by the event determination stage.
	PerObjectStatus map[int]ObjectStatus

	// HasFilteredBox and FilteredBox are populated only by the event stage's
	// minimum-width heuristic; optional by design (spec.md §9).
	HasFilteredBox bool
	FilteredBox    Box

	// StageDone[k] is set exactly once, by the stage that performed step k.
	// Index 0=seg, 1=mask, 2=detect, 3=track, 4=event.
	StageDone [5]bool
}

// AllDone reports whether every stage named in enabled has set its flag.
func (f *Frame) AllDone(enabled [5]bool) bool {
	for i, on := range enabled {
		if on && !f.StageDone[i] {
			return false
		}
	}
	return true
}
