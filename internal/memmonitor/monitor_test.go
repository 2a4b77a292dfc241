package memmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStatsReportsNonZeroProcessMemory(t *testing.T) {
	m := New(time.Hour)
	stats := m.CurrentStats()
	assert.Greater(t, stats.ProcessMemoryMB, uint64(0))
	assert.False(t, stats.Timestamp.IsZero())
}

func TestStartStopIsIdempotentAndSamples(t *testing.T) {
	m := New(10 * time.Millisecond)
	m.Start()
	m.Start() // idempotent
	time.Sleep(50 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent

	assert.GreaterOrEqual(t, len(m.history), 1)
}

func TestNoLeakDetectedBeforeOneMinuteElapsed(t *testing.T) {
	m := New(5 * time.Millisecond)
	m.Start()
	defer m.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.IsLeakDetected())
}

func TestCheckLeakFlagsSustainedGrowthPastThreshold(t *testing.T) {
	m := New(time.Hour)
	m.startTime = time.Now().Add(-2 * time.Minute)
	m.startMemoryMB = 100
	m.SetLeakThreshold(10)

	m.checkLeak(Stats{ProcessMemoryMB: 1000, Timestamp: time.Now()}, 10)
	assert.True(t, m.IsLeakDetected())
}

func TestCheckLeakDoesNotFlagBelowThreshold(t *testing.T) {
	m := New(time.Hour)
	m.startTime = time.Now().Add(-2 * time.Minute)
	m.startMemoryMB = 100

	m.checkLeak(Stats{ProcessMemoryMB: 105, Timestamp: time.Now()}, 50)
	assert.False(t, m.IsLeakDetected())
}

func TestSetLeakThresholdIgnoresNonPositive(t *testing.T) {
	m := New(time.Second)
	m.SetLeakThreshold(25)
	m.SetLeakThreshold(-1)
	m.SetLeakThreshold(0)

	m.mu.Lock()
	got := m.threshold
	m.mu.Unlock()
	assert.Equal(t, 25.0, got)
}

func TestGrowthRateRequiresTwoSamples(t *testing.T) {
	m := New(time.Hour)
	assert.Equal(t, 0.0, m.GrowthRateMBPerMin())

	m.history = []Stats{{ProcessMemoryMB: 10, Timestamp: time.Now().Add(-time.Minute)}}
	assert.Equal(t, 0.0, m.GrowthRateMBPerMin())

	m.history = append(m.history, Stats{ProcessMemoryMB: 70, Timestamp: time.Now()})
	rate := m.GrowthRateMBPerMin()
	require.Greater(t, rate, 0.0)
}
