// Package metrics implements Prometheus metrics for the frame pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesAcceptedTotal counts frames accepted into the Batch Buffer by Submit.
	FramesAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "highwaypipe_frames_accepted_total",
			Help: "Total number of frames accepted by Submit",
		},
		[]string{"pipeline"},
	)

	// BatchesDroppedTotal counts batches dropped after a stage processor error.
	BatchesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "highwaypipe_batches_dropped_total",
			Help: "Total number of batches dropped after a stage processing error",
		},
		[]string{"pipeline", "stage"},
	)

	// FramesProcessedTotal counts frames that completed a given stage.
	FramesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "highwaypipe_frames_processed_total",
			Help: "Total number of frames that completed a pipeline stage",
		},
		[]string{"pipeline", "stage"},
	)

	// StageLatencySeconds measures per-batch stage processing latency.
	StageLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "highwaypipe_stage_latency_seconds",
			Help:    "Latency of a single batch passing through a pipeline stage, in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 100Âµs to ~3.3s
		},
		[]string{"pipeline", "stage"},
	)

	// PipelineStatus tracks the coordinator's lifecycle state.
	PipelineStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "highwaypipe_status",
			Help: "Current lifecycle state of the pipeline (0=stopped, 1=starting, 2=running, 3=stopping, 4=error)",
		},
		[]string{"pipeline"},
	)

	// StageQueueDepth tracks how many batches are queued on a stage's input connector.
	StageQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "highwaypipe_stage_queue_depth",
			Help: "Number of batches queued on a stage's input connector",
		},
		[]string{"pipeline", "stage"},
	)

	// RendezvousPending tracks how many completed frames are held awaiting Get/TryGet.
	RendezvousPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "highwaypipe_rendezvous_pending",
			Help: "Number of completed frames currently held in the rendezvous map",
		},
		[]string{"pipeline"},
	)

	// ProcessMemoryMB tracks the memmonitor-sampled resident process memory.
	ProcessMemoryMB = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "highwaypipe_process_memory_mb",
			Help: "Resident process memory in MB, as sampled by internal/memmonitor",
		},
		[]string{"pipeline"},
	)

	// MemoryLeakDetected is 1 once memmonitor has flagged a sustained growth-rate leak.
	MemoryLeakDetected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "highwaypipe_memory_leak_detected",
			Help: "1 if memmonitor has flagged a suspected memory leak, 0 otherwise",
		},
		[]string{"pipeline"},
	)
)

// The PipelineStatus* constants represent pipeline lifecycle state as a
// numeric value for the PipelineStatus gauge.
const (
	PipelineStatusStopped  = 0
	PipelineStatusStarting = 1
	PipelineStatusRunning  = 2
	PipelineStatusStopping = 3
	PipelineStatusError    = 4
)
