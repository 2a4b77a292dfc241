package core

import "fmt"

// StageName indexes the five pipeline stages in their fixed execution
// order. Values double as indices into Frame.StageDone / Batch.StageDone.
type StageName int

const (
	StageSeg StageName = iota
	StageMask
	StageDetect
	StageTrack
	StageEvent
	numStages = 5
)

func (s StageName) String() string {
	switch s {
	case StageSeg:
		return "seg"
	case StageMask:
		return "mask"
	case StageDetect:
		return "detect"
	case StageTrack:
		return "track"
	case StageEvent:
		return "event"
	default:
		return "unknown"
	}
}

// PipelineConfig is the recognized option surface from spec.md §3. No file
// format is mandated by the spec; internal/config decodes this struct from
// YAML via viper/mapstructure.
type PipelineConfig struct {
	// Name labels this pipeline instance's metrics and log lines when an
	// operator runs more than one (e.g. blue/green config rollout).
	Name string `mapstructure:"name"`

	EnableSeg    bool `mapstructure:"enable_seg"`
	EnableMask   bool `mapstructure:"enable_mask"`
	EnableDetect bool `mapstructure:"enable_detect"`
	EnableTrack  bool `mapstructure:"enable_track"`
	EnableEvent  bool `mapstructure:"enable_event"`

	ThreadsSeg    int `mapstructure:"threads_seg"`
	ThreadsMask   int `mapstructure:"threads_mask"`
	ThreadsDetect int `mapstructure:"threads_detect"`
	ThreadsTrack  int `mapstructure:"threads_track"`
	ThreadsEvent  int `mapstructure:"threads_event"`

	BatchFlushMS   int `mapstructure:"batch_flush_ms"`
	ReadyBatchCap  int `mapstructure:"ready_batch_cap"`
	AddTimeoutMS   int `mapstructure:"add_timeout_ms"`
	GetTimeoutMS   int `mapstructure:"get_timeout_ms"`

	ConnectorCaps ConnectorCapsConfig `mapstructure:"connector_caps"`

	// Model/threshold/lane-geometry configuration is opaque to the core
	// (spec.md §3); it is handed verbatim to pkg/engine factories.
	SegModel    EngineConfig `mapstructure:"seg_model"`
	DetectModel EngineConfig `mapstructure:"detect_model"`
	TrackModel  EngineConfig `mapstructure:"track_model"`
	ParkModel   EngineConfig `mapstructure:"park_model"`

	RendezvousSoftCap int `mapstructure:"rendezvous_soft_cap"`

	// MemMonitorIntervalMS and MemLeakThresholdMBPerMin configure the
	// process memory/leak-detection surface (internal/memmonitor),
	// grounded on the original's MemoryMonitor constructor parameters
	// (monitor_interval_ms, leak_detection_threshold_mb_per_min_).
	MemMonitorIntervalMS    int     `mapstructure:"mem_monitor_interval_ms"`
	MemLeakThresholdMBPerMin float64 `mapstructure:"mem_leak_threshold_mb_per_min"`
}

// ConnectorCapsConfig holds the bounded-queue capacity for each inter-stage
// edge (spec.md §4.5). A zero value falls back to DefaultConnectorCap.
type ConnectorCapsConfig struct {
	IngressToSeg  int `mapstructure:"ingress_to_seg"`
	SegToMask     int `mapstructure:"seg_to_mask"`
	MaskToDetect  int `mapstructure:"mask_to_detect"`
	DetectToTrack int `mapstructure:"detect_to_track"`
	TrackToEvent  int `mapstructure:"track_to_event"`
	AnyToFinal    int `mapstructure:"any_to_final"`
}

// EngineConfig is the opaque-to-the-core configuration blob for one
// inference engine collaborator: which named implementation to instantiate
// (pkg/engine registry) plus its model path / thresholds / lane geometry.
type EngineConfig struct {
	Name       string         `mapstructure:"name"`
	ModelPath  string         `mapstructure:"model_path"`
	Confidence float64        `mapstructure:"confidence"`
	NMSThresh  float64        `mapstructure:"nms_threshold"`
	Params     map[string]any `mapstructure:"params"`
}

const (
	DefaultBatchFlushMS      = 100
	DefaultReadyBatchCap     = 4
	DefaultAddTimeoutMS      = 2000
	DefaultGetTimeoutMS      = 5000
	DefaultConnectorCap      = 8
	DefaultRendezvousSoftCap = 1000
	DefaultMemMonitorIntervalMS     = 1000
	DefaultMemLeakThresholdMBPerMin = 50.0
)

// ApplyDefaults fills zero-valued tunables with their documented defaults.
// Mirrors the teacher's internal/otus/config applyDefaults step.
func (c *PipelineConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.BatchFlushMS <= 0 {
		c.BatchFlushMS = DefaultBatchFlushMS
	}
	if c.ReadyBatchCap <= 0 {
		c.ReadyBatchCap = DefaultReadyBatchCap
	}
	if c.AddTimeoutMS <= 0 {
		c.AddTimeoutMS = DefaultAddTimeoutMS
	}
	if c.GetTimeoutMS <= 0 {
		c.GetTimeoutMS = DefaultGetTimeoutMS
	}
	if c.RendezvousSoftCap <= 0 {
		c.RendezvousSoftCap = DefaultRendezvousSoftCap
	}
	if c.MemMonitorIntervalMS <= 0 {
		c.MemMonitorIntervalMS = DefaultMemMonitorIntervalMS
	}
	if c.MemLeakThresholdMBPerMin <= 0 {
		c.MemLeakThresholdMBPerMin = DefaultMemLeakThresholdMBPerMin
	}
	for _, p := range []*int{
		&c.ConnectorCaps.IngressToSeg, &c.ConnectorCaps.SegToMask,
		&c.ConnectorCaps.MaskToDetect, &c.ConnectorCaps.DetectToTrack,
		&c.ConnectorCaps.TrackToEvent, &c.ConnectorCaps.AnyToFinal,
	} {
		if *p <= 0 {
			*p = DefaultConnectorCap
		}
	}
	for _, p := range []*int{&c.ThreadsSeg, &c.ThreadsMask, &c.ThreadsDetect, &c.ThreadsTrack, &c.ThreadsEvent} {
		if *p <= 0 {
			*p = 1
		}
	}
}

// Validate enforces the stage-dependency rules from spec.md §3: mask and
// event require seg; track requires detect. Called by the Coordinator
// before Start and by the `validate` CLI verb.
func (c *PipelineConfig) Validate() error {
	if c.EnableMask && !c.EnableSeg {
		return fmt.Errorf("%w: enable_mask requires enable_seg", ErrInvalidConfig)
	}
	if c.EnableEvent && !c.EnableSeg {
		return fmt.Errorf("%w: enable_event requires enable_seg", ErrInvalidConfig)
	}
	if c.EnableTrack && !c.EnableDetect {
		return fmt.Errorf("%w: enable_track requires enable_detect", ErrInvalidConfig)
	}
	return nil
}

// EnabledStages returns, in stage order, whether each of the five stages
// participates given this config.
func (c *PipelineConfig) EnabledStages() [5]bool {
	return [5]bool{
		StageSeg:    c.EnableSeg,
		StageMask:   c.EnableMask,
		StageDetect: c.EnableDetect,
		StageTrack:  c.EnableTrack,
		StageEvent:  c.EnableEvent,
	}
}
