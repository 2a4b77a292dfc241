package stage

import (
	"errors"
	"testing"
	"time"

	"github.com/MrWwei/highway-event-pipeline/internal/connector"
	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	fn func(*core.Batch) error
}

func (f fakeProcessor) Process(b *core.Batch) error {
	return f.fn(b)
}

func TestStageProcessesAndMarksStageDone(t *testing.T) {
	in := connector.New("in", 2)
	out := connector.New("out", 2)
	s := New("test", "seg", core.StageSeg, in, out, 1, fakeProcessor{fn: func(b *core.Batch) error { return nil }})
	s.Start()

	batch := core.NewBatch(1)
	require.NoError(t, s.Enqueue(batch))

	got, err := s.DequeueDone()
	require.NoError(t, err)
	assert.Same(t, batch, got)
	assert.True(t, got.StageDone[core.StageSeg])
	assert.EqualValues(t, 1, s.ProcessedBatches())

	s.Stop()
}

func TestStageDropsBatchOnProcessorError(t *testing.T) {
	in := connector.New("in", 2)
	out := connector.New("out", 2)
	s := New("test", "mask", core.StageMask, in, out, 1, fakeProcessor{fn: func(b *core.Batch) error { return errors.New("boom") }})
	s.Start()

	require.NoError(t, s.Enqueue(core.NewBatch(1)))

	done := make(chan struct{})
	go func() {
		_, err := s.DequeueDone()
		if err != nil {
			close(done)
		}
	}()

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected output connector to close with no batch ever emitted")
	}
	assert.EqualValues(t, 0, s.ProcessedBatches())
}

func TestStageRecoversFromPanic(t *testing.T) {
	in := connector.New("in", 2)
	out := connector.New("out", 2)
	s := New("test", "detect", core.StageDetect, in, out, 1, fakeProcessor{fn: func(b *core.Batch) error { panic("kaboom") }})
	s.Start()
	require.NoError(t, s.Enqueue(core.NewBatch(1)))

	// a second batch (which panics too) is drained by the same single
	// worker before Stop returns, so the worker survived the first panic.
	require.NoError(t, s.Enqueue(core.NewBatch(2)))
	s.Stop()
}

func TestPendingQueueSizeReflectsBacklog(t *testing.T) {
	in := connector.New("in", 4)
	out := connector.New("out", 4)
	s := New("test", "event", core.StageEvent, in, out, 0, fakeProcessor{fn: func(b *core.Batch) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}})
	s.Start()
	defer s.Stop()

	require.NoError(t, s.Enqueue(core.NewBatch(1)))
	require.NoError(t, s.Enqueue(core.NewBatch(2)))
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, s.PendingQueueSize(), 1)
}
