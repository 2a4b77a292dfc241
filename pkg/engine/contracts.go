// Package engine declares the inference-engine contracts the pipeline
// stages consume (spec.md §6 "inference-engine contract"). The CNN models
// themselves are external collaborators; this package only pins the data
// they exchange with the core and the threading rules each contract obeys.
package engine

import "image"

// LabelGrid is a segmentation mask: a single-channel label buffer plus its
// dimensions, independent of the source image's own size.
type LabelGrid struct {
	Labels []byte
	Width  int
	Height int
}

// BoxOut is one inference-engine-produced bounding box, in the coordinate
// space the owning contract documents.
type BoxOut struct {
	Left, Top, Right, Bottom float64
	Confidence               float64
	Class                    int
}

// TrackOut is a tracker-assigned box with a stable identity.
type TrackOut struct {
	Left, Top, Right, Bottom float64
	TrackID                  int
	Class                    int
	IsStill                  bool
}

// SegEngine predicts a label grid per input image. Implementations must be
// safe for concurrent Predict calls from distinct handles, but the core
// never shares one handle across concurrent callers (each stage worker owns
// its handle or serializes access itself).
type SegEngine interface {
	Predict(images []image.Image) ([]LabelGrid, error)
}

// DetectEngine runs object detection over a batch of crops in one call.
// Same threading rule as SegEngine.
type DetectEngine interface {
	Forward(crops []image.Image) ([][]BoxOut, error)
}

// TrackEngine is stateful and NOT safe for concurrent use on one handle;
// the tracking stage is responsible for serializing access to a handle
// under its cross-batch lock (spec.md §4.7.4).
type TrackEngine interface {
	Track(detections []BoxOut, width, height int) ([]TrackOut, error)
}

// ParkingDetect annotates IsStill on tracks already assigned by a
// TrackEngine; it observes the source image for stillness evidence.
type ParkingDetect interface {
	Detect(img image.Image, tracks []TrackOut) ([]TrackOut, error)
}
