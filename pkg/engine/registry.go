package engine

import (
	"fmt"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
)

// Factory types mirror the contracts: zero-argument constructors that
// return a ready handle. Model paths and thresholds are injected by the
// caller before registration, not by the registry.
type (
	SegEngineFactory     func() SegEngine
	DetectEngineFactory  func() DetectEngine
	TrackEngineFactory   func() TrackEngine
	ParkingDetectFactory func() ParkingDetect
)

// Global registry maps, populated during process init and read-only once
// the coordinator starts.
var (
	segRegistry     = make(map[string]SegEngineFactory)
	detectRegistry  = make(map[string]DetectEngineFactory)
	trackRegistry   = make(map[string]TrackEngineFactory)
	parkingRegistry = make(map[string]ParkingDetectFactory)
)

// RegisterSegEngine registers a segmentation engine factory by name. Panics
// on an empty name, a nil factory, or a duplicate registration — all three
// indicate a compile-time wiring bug, not a runtime condition.
func RegisterSegEngine(name string, factory SegEngineFactory) {
	if name == "" {
		panic("engine: seg engine name cannot be empty")
	}
	if factory == nil {
		panic("engine: seg engine factory cannot be nil")
	}
	if _, exists := segRegistry[name]; exists {
		panic(fmt.Sprintf("engine: seg engine %q already registered", name))
	}
	segRegistry[name] = factory
}

// RegisterDetectEngine registers a detection engine factory by name.
func RegisterDetectEngine(name string, factory DetectEngineFactory) {
	if name == "" {
		panic("engine: detect engine name cannot be empty")
	}
	if factory == nil {
		panic("engine: detect engine factory cannot be nil")
	}
	if _, exists := detectRegistry[name]; exists {
		panic(fmt.Sprintf("engine: detect engine %q already registered", name))
	}
	detectRegistry[name] = factory
}

// RegisterTrackEngine registers a tracking engine factory by name.
func RegisterTrackEngine(name string, factory TrackEngineFactory) {
	if name == "" {
		panic("engine: track engine name cannot be empty")
	}
	if factory == nil {
		panic("engine: track engine factory cannot be nil")
	}
	if _, exists := trackRegistry[name]; exists {
		panic(fmt.Sprintf("engine: track engine %q already registered", name))
	}
	trackRegistry[name] = factory
}

// RegisterParkingDetect registers a parking-detection collaborator factory.
func RegisterParkingDetect(name string, factory ParkingDetectFactory) {
	if name == "" {
		panic("engine: parking detect name cannot be empty")
	}
	if factory == nil {
		panic("engine: parking detect factory cannot be nil")
	}
	if _, exists := parkingRegistry[name]; exists {
		panic(fmt.Sprintf("engine: parking detect %q already registered", name))
	}
	parkingRegistry[name] = factory
}

// NewSegEngine builds a handle from the named factory.
func NewSegEngine(name string) (SegEngine, error) {
	factory, ok := segRegistry[name]
	if !ok {
		return nil, fmt.Errorf("seg engine %q: %w", name, core.ErrEngineNotFound)
	}
	return factory(), nil
}

// NewDetectEngine builds a handle from the named factory.
func NewDetectEngine(name string) (DetectEngine, error) {
	factory, ok := detectRegistry[name]
	if !ok {
		return nil, fmt.Errorf("detect engine %q: %w", name, core.ErrEngineNotFound)
	}
	return factory(), nil
}

// NewTrackEngine builds a handle from the named factory.
func NewTrackEngine(name string) (TrackEngine, error) {
	factory, ok := trackRegistry[name]
	if !ok {
		return nil, fmt.Errorf("track engine %q: %w", name, core.ErrEngineNotFound)
	}
	return factory(), nil
}

// NewParkingDetect builds a handle from the named factory.
func NewParkingDetect(name string) (ParkingDetect, error) {
	factory, ok := parkingRegistry[name]
	if !ok {
		return nil, fmt.Errorf("parking detect %q: %w", name, core.ErrEngineNotFound)
	}
	return factory(), nil
}
