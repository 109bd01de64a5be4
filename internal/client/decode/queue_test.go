package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameQueueSingleSlot(t *testing.T) {
	q := NewFrameQueue()

	first := &Record{Frame: 1}
	second := &Record{Frame: 2}

	// First offer lands, second is dropped while the slot is occupied
	assert.True(t, q.Offer(first))
	assert.False(t, q.Offer(second))

	// The pending record is still the first one
	rec, ok := q.Poll()
	require.True(t, ok)
	assert.Same(t, first, rec)

	// After a take the next offer succeeds again
	assert.True(t, q.Offer(second))

	rec, ok = q.Poll()
	require.True(t, ok)
	assert.Same(t, second, rec)
}

func TestFrameQueuePollEmpty(t *testing.T) {
	q := NewFrameQueue()

	rec, ok := q.Poll()
	assert.False(t, ok)
	assert.Nil(t, rec)
}
