package renderer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

func colorSpec(samples uint8) metadata.RenderTargetSpec {
	return metadata.RenderTargetSpec{
		Width:   32,
		Height:  16,
		Format:  metadata.FormatDefaultHDR,
		Samples: samples,
		Usage:   metadata.TextureUsageColorAttachment,
		BindMS:  samples > 1,
	}
}

func TestPoolReusesIdenticalSpec(t *testing.T) {
	backend := newFakeBackend()
	pool := NewTargetPool(backend, 2, nil)

	first, err := pool.Acquire(colorSpec(4))
	require.NoError(t, err)
	require.NoError(t, pool.Release(first))

	again, err := pool.Acquire(colorSpec(4))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Handle, again.Handle)

	other, err := pool.Acquire(colorSpec(2))
	require.NoError(t, err)
	assert.NotEqual(t, first.Handle, other.Handle)

	stats := pool.Stats()
	assert.Equal(t, uint64(2), stats.Allocated)
	assert.Equal(t, uint64(1), stats.Reused)
	assert.Equal(t, 2, stats.Outstanding)
}

func TestPoolDoubleRelease(t *testing.T) {
	pool := NewTargetPool(newFakeBackend(), 2, nil)

	target, err := pool.Acquire(colorSpec(1))
	require.NoError(t, err)
	require.NoError(t, pool.Release(target))
	assert.ErrorIs(t, pool.Release(target), core.ErrTargetNotAcquired)
	assert.ErrorIs(t, pool.Release(nil), core.ErrTargetNotAcquired)

	foreign := &PooledTarget{Spec: colorSpec(1), Handle: target.Handle}
	assert.ErrorIs(t, pool.Release(foreign), core.ErrTargetNotAcquired)
	assert.Equal(t, 1, pool.Stats().Idle)
}

func TestPoolAllocationError(t *testing.T) {
	backend := newFakeBackend()
	backend.maxSamples = 1
	pool := NewTargetPool(backend, 2, nil)

	_, err := pool.Acquire(colorSpec(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAllocation)

	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, uint8(4), allocErr.Spec.Samples)
	assert.Equal(t, "fake", allocErr.Backend)

	_, err = pool.Acquire(metadata.RenderTargetSpec{Format: metadata.FormatDepth32, Samples: 1})
	assert.ErrorIs(t, err, core.ErrAllocation, "zero sized spec")
	assert.Zero(t, pool.Stats().Outstanding)
}

func TestPoolDestroysOverflow(t *testing.T) {
	backend := newFakeBackend()
	pool := NewTargetPool(backend, 1, nil)

	a, err := pool.Acquire(colorSpec(1))
	require.NoError(t, err)
	b, err := pool.Acquire(colorSpec(1))
	require.NoError(t, err)

	require.NoError(t, pool.Release(a))
	require.NoError(t, pool.Release(b))

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.Destroyed)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 1, backend.liveCount())

	require.NoError(t, pool.Trim())
	assert.Zero(t, pool.Stats().Idle)
	assert.Zero(t, backend.liveCount())
}

func TestPoolShutdownReportsLeaks(t *testing.T) {
	backend := newFakeBackend()
	pool := NewTargetPool(backend, 2, nil)

	leaked, err := pool.Acquire(colorSpec(1))
	require.NoError(t, err)
	idle, err := pool.Acquire(colorSpec(2))
	require.NoError(t, err)
	require.NoError(t, pool.Release(idle))

	assert.Error(t, pool.Shutdown())
	assert.Equal(t, 1, backend.liveCount())

	_, err = pool.Acquire(colorSpec(1))
	assert.ErrorIs(t, err, core.ErrPoolClosed)

	// a late release frees the target instead of pooling it
	require.NoError(t, pool.Release(leaked))
	assert.Zero(t, backend.liveCount())
	assert.NoError(t, pool.Shutdown())
}

func TestPoolConcurrentAcquireRelease(t *testing.T) {
	backend := newFakeBackend()
	pool := NewTargetPool(backend, 4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(samples uint8) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				target, err := pool.Acquire(colorSpec(samples))
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, pool.Release(target))
			}
		}(uint8(1) << (i % 3))
	}
	wg.Wait()

	stats := pool.Stats()
	assert.Zero(t, stats.Outstanding)
	assert.Equal(t, uint64(16*50), stats.Allocated+stats.Reused)
	assert.Equal(t, backend.liveCount(), stats.Idle)
}
