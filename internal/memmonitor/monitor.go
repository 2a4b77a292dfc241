// Package memmonitor implements the process memory/leak-detection
// surface the original implementation's MemoryMonitor exposed
// (_examples/original_source/include/memory_monitor.h,
// src/memory_monitor.cpp), wired into the Coordinator as the Go
// equivalent of BatchPipelineManager's start_memory_monitoring() /
// is_memory_leak_detected() family
// (_examples/original_source/include/batch_pipeline_manager.h:58-63).
// It directly backs spec.md's testable property 5 ("process memory does
// not grow unboundedly") and the S2 backpressure scenario's RSS check.
package memmonitor

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/procfs"
)

// DefaultInterval mirrors the original's default monitor_interval_ms (1s).
const DefaultInterval = time.Second

// DefaultThresholdMBPerMin mirrors the original's default
// leak_detection_threshold_mb_per_min_ (50.0).
const DefaultThresholdMBPerMin = 50.0

// maxHistorySize mirrors the original's max_history_size_ (3600 samples,
// one hour at the default 1s interval).
const maxHistorySize = 3600

// Stats is the Go equivalent of the original's MemoryStats: a single
// point-in-time snapshot of process memory. GPU/CPU fields from the
// original are dropped — this core has no GPU-resident state of its own
// to report and CPU accounting is already covered by runtime.NumGoroutine
// via the standard pprof/metrics surface, not a bespoke sample here.
type Stats struct {
	ProcessMemoryMB  uint64
	ResidentMemoryMB uint64
	VirtualMemoryMB  uint64
	Timestamp        time.Time
}

// Monitor samples process memory on a fixed interval, retains a bounded
// history, and flags a suspected leak once the sustained growth rate
// exceeds a configurable threshold — the direct port of the original's
// MemoryMonitor::check_memory_leak.
type Monitor struct {
	interval time.Duration

	mu        sync.Mutex
	threshold float64
	history   []Stats

	startTime     time.Time
	startMemoryMB uint64
	leakDetected  atomic.Bool

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Monitor. A non-positive interval falls back to
// DefaultInterval.
func New(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		interval:  interval,
		threshold: DefaultThresholdMBPerMin,
	}
}

// Start begins the sampling goroutine. Idempotent.
func (m *Monitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.startTime = time.Now()
	m.startMemoryMB = collect().ProcessMemoryMB

	m.stopCh = make(chan struct{})
	m.wg.Add(1)
	go m.loop()
}

// Stop halts sampling and joins the goroutine. Idempotent.
func (m *Monitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	stats := collect()

	m.mu.Lock()
	m.history = append(m.history, stats)
	if len(m.history) > maxHistorySize {
		m.history = m.history[len(m.history)-maxHistorySize:]
	}
	threshold := m.threshold
	m.mu.Unlock()

	m.checkLeak(stats, threshold)
}

// checkLeak mirrors MemoryMonitor::check_memory_leak: no verdict before a
// full minute has elapsed since Start, then flags a leak once sustained
// growth exceeds threshold MB/minute. Once flagged it stays flagged for
// this Monitor's lifetime, matching the original's latch behavior.
func (m *Monitor) checkLeak(stats Stats, threshold float64) {
	elapsed := time.Since(m.startTime)
	if elapsed < time.Minute {
		return
	}
	growthMB := int64(stats.ProcessMemoryMB) - int64(m.startMemoryMB)
	rate := float64(growthMB) / elapsed.Minutes()
	if rate > threshold && m.leakDetected.CompareAndSwap(false, true) {
		slog.Warn("memmonitor: suspected memory leak detected",
			"growth_rate_mb_per_min", rate, "threshold_mb_per_min", threshold,
			"process_memory_mb", stats.ProcessMemoryMB)
	}
}

// CurrentStats samples memory immediately, independent of the background
// loop — the Go equivalent of get_current_stats() (which also bypasses
// the history and samples directly).
func (m *Monitor) CurrentStats() Stats {
	return collect()
}

// GrowthRateMBPerMin reports the growth rate over the retained history's
// oldest-to-newest span, zero if fewer than two samples exist yet.
func (m *Monitor) GrowthRateMBPerMin() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < 2 {
		return 0
	}
	first, last := m.history[0], m.history[len(m.history)-1]
	elapsed := last.Timestamp.Sub(first.Timestamp)
	if elapsed <= 0 {
		return 0
	}
	growthMB := int64(last.ProcessMemoryMB) - int64(first.ProcessMemoryMB)
	return float64(growthMB) / elapsed.Minutes()
}

// IsLeakDetected reports whether a sustained-growth leak has been
// flagged since Start.
func (m *Monitor) IsLeakDetected() bool {
	return m.leakDetected.Load()
}

// SetLeakThreshold replaces the growth-rate threshold (MB/minute) a
// sustained climb must exceed to be flagged.
func (m *Monitor) SetLeakThreshold(mbPerMin float64) {
	if mbPerMin <= 0 {
		return
	}
	m.mu.Lock()
	m.threshold = mbPerMin
	m.mu.Unlock()
}

// collect reads this process's memory via prometheus/procfs (already in
// this module's dependency graph as client_golang's own self-metrics
// reader, and the pack's idiomatic way to read /proc — see
// sawpanic-cryptorun's go.mod), the Go-ecosystem equivalent of the
// original's get_process_memory_info() which parses the same
// /proc/self/status VmRSS/VmSize fields by hand. Falls back to
// runtime.MemStats, the way the teacher's own pkg/capture/stats.go
// reports memory, on platforms without /proc.
func collect() Stats {
	stats := Stats{Timestamp: time.Now()}
	if proc, err := procfs.NewProc(os.Getpid()); err == nil {
		if status, err := proc.NewStatus(); err == nil {
			stats.ResidentMemoryMB = status.VmRSS / 1024 / 1024
			stats.VirtualMemoryMB = status.VmSize / 1024 / 1024
			stats.ProcessMemoryMB = stats.ResidentMemoryMB
			return stats
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.ProcessMemoryMB = ms.Sys / 1024 / 1024
	stats.ResidentMemoryMB = ms.Alloc / 1024 / 1024
	return stats
}
