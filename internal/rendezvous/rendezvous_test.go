package rendezvous

import (
	"testing"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishThenWaitSucceeds(t *testing.T) {
	r := New(10)
	f := &core.Frame{FrameID: 1}
	r.Publish(1, f)

	res := r.Wait(1, time.Second)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Same(t, f, res.Frame)
}

func TestWaitBeforePublishBlocksThenSucceeds(t *testing.T) {
	r := New(10)
	f := &core.Frame{FrameID: 5}

	resultCh := make(chan Result, 1)
	go func() { resultCh <- r.Wait(5, time.Second) }()

	time.Sleep(20 * time.Millisecond)
	r.Publish(5, f)

	select {
	case res := <-resultCh:
		assert.Equal(t, StatusSuccess, res.Status)
	case <-time.After(time.Second):
		t.Fatal("Wait never woke up after Publish")
	}
}

func TestSecondWaiterOnSameIDObservesNotFound(t *testing.T) {
	r := New(10)
	r.Publish(1, &core.Frame{FrameID: 1})

	first := r.Wait(1, time.Second)
	require.Equal(t, StatusSuccess, first.Status)

	second := r.TryGet(1)
	assert.Equal(t, StatusNotFound, second.Status)
}

func TestWaitTimesOut(t *testing.T) {
	r := New(10)
	res := r.Wait(99, 30*time.Millisecond)
	assert.Equal(t, StatusTimeout, res.Status)
}

func TestTryGetNotFound(t *testing.T) {
	r := New(10)
	res := r.TryGet(42)
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestShutdownWakesWaitersWithStopped(t *testing.T) {
	r := New(10)
	resultCh := make(chan Result, 1)
	go func() { resultCh <- r.Wait(1, time.Second) }()

	time.Sleep(20 * time.Millisecond)
	r.Shutdown()

	select {
	case res := <-resultCh:
		assert.Equal(t, StatusStopped, res.Status)
	case <-time.After(time.Second):
		t.Fatal("Wait never woke up after Shutdown")
	}

	assert.Equal(t, StatusStopped, r.TryGet(1).Status)
}

func TestShutdownIsIdempotent(t *testing.T) {
	r := New(10)
	r.Shutdown()
	r.Shutdown()
}

func TestSoftCapEvictsOldestHalf(t *testing.T) {
	r := New(10)
	for i := uint64(1); i <= 11; i++ {
		r.Publish(i, &core.Frame{FrameID: i})
	}
	// cap=10 exceeded at the 11th publish -> oldest 5 evicted (ids 1..5).
	assert.Equal(t, StatusNotFound, r.TryGet(1).Status)
	assert.Equal(t, StatusSuccess, r.TryGet(11).Status)
}
