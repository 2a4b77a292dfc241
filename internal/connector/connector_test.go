package connector

import (
	"testing"

	"github.com/MrWwei/highway-event-pipeline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecvRoundTrip(t *testing.T) {
	c := New("seg->mask", 2)
	batch := core.NewBatch(1)

	require.NoError(t, c.Send(batch))
	got, err := c.Recv()
	require.NoError(t, err)
	assert.Same(t, batch, got)
}

func TestPendingLenTracksOccupancy(t *testing.T) {
	c := New("mask->detect", 4)
	assert.Equal(t, 0, c.PendingLen())

	require.NoError(t, c.Send(core.NewBatch(1)))
	require.NoError(t, c.Send(core.NewBatch(2)))
	assert.Equal(t, 2, c.PendingLen())

	_, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, c.PendingLen())
}

func TestShutdownClosesConnector(t *testing.T) {
	c := New("detect->track", 2)
	c.Shutdown()
	c.Shutdown() // idempotent

	assert.ErrorIs(t, c.Send(core.NewBatch(1)), core.ErrQueueClosed)
	_, err := c.Recv()
	assert.ErrorIs(t, err, core.ErrQueueClosed)
}

func TestName(t *testing.T) {
	c := New("track->event", 1)
	assert.Equal(t, "track->event", c.Name())
}
