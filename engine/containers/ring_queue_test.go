package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	q := NewRingQueue[int](3)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue(4), ErrQueueFull)

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// wraps around
	require.NoError(t, q.Enqueue(4))
	assert.Equal(t, []int{2, 3, 4}, q.Drain())
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 3, q.Cap())
}

func TestRingQueueEmpty(t *testing.T) {
	q := NewRingQueue[*string](0)
	assert.Equal(t, 1, q.Cap())

	v, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.Nil(t, v)

	_, err = q.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
