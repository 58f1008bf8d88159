package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/spaghettifunk/resolvepipe/engine/containers"
	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

const DefaultMaxIdlePerSpec int = 4

// PooledTarget is a render target owned by the pool while idle and
// borrowed by a pass executor during a camera render.
type PooledTarget struct {
	ID     uuid.UUID
	Spec   metadata.RenderTargetSpec
	Handle metadata.TargetHandle
}

type PoolStats struct {
	Allocated   uint64
	Reused      uint64
	Destroyed   uint64
	Outstanding int
	Idle        int
}

// TargetPool hands out render targets keyed by their spec. Acquire and
// Release are safe for concurrent use.
type TargetPool struct {
	mu          sync.Mutex
	backend     Backend
	maxIdle     int
	idle        map[metadata.RenderTargetSpec]*containers.RingQueue[*PooledTarget]
	outstanding map[uuid.UUID]*PooledTarget
	stats       PoolStats
	closed      bool
	logger      *log.Logger
}

func NewTargetPool(backend Backend, maxIdlePerSpec int, logger *log.Logger) *TargetPool {
	if maxIdlePerSpec < 1 {
		maxIdlePerSpec = DefaultMaxIdlePerSpec
	}
	if logger == nil {
		logger = core.NewLogger("pool")
	}
	return &TargetPool{
		backend:     backend,
		maxIdle:     maxIdlePerSpec,
		idle:        make(map[metadata.RenderTargetSpec]*containers.RingQueue[*PooledTarget]),
		outstanding: make(map[uuid.UUID]*PooledTarget),
		logger:      logger,
	}
}

// Acquire returns an idle target matching spec or allocates a new one.
func (p *TargetPool) Acquire(spec metadata.RenderTargetSpec) (*PooledTarget, error) {
	if err := spec.Validate(); err != nil {
		return nil, &AllocationError{Spec: spec, Backend: p.backend.Name(), Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, &AllocationError{Spec: spec, Backend: p.backend.Name(), Err: core.ErrPoolClosed}
	}

	if q, ok := p.idle[spec]; ok && !q.IsEmpty() {
		target, _ := q.Dequeue()
		p.outstanding[target.ID] = target
		p.stats.Reused++
		return target, nil
	}

	handle, err := p.backend.CreateTarget(spec)
	if err != nil {
		return nil, &AllocationError{Spec: spec, Backend: p.backend.Name(), Err: err}
	}
	target := &PooledTarget{
		ID:     uuid.New(),
		Spec:   spec,
		Handle: handle,
	}
	p.outstanding[target.ID] = target
	p.stats.Allocated++
	p.logger.Debug("allocated render target", "spec", spec.String(), "id", target.ID)
	return target, nil
}

// Release hands a target back. Releasing a target twice, or one this pool
// never handed out, fails with core.ErrTargetNotAcquired.
func (p *TargetPool) Release(target *PooledTarget) error {
	if target == nil {
		return fmt.Errorf("release nil target: %w", core.ErrTargetNotAcquired)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if owned, ok := p.outstanding[target.ID]; !ok || owned != target {
		return fmt.Errorf("release target %s: %w", target.ID, core.ErrTargetNotAcquired)
	}
	delete(p.outstanding, target.ID)

	if p.closed {
		return p.destroy(target)
	}

	q, ok := p.idle[target.Spec]
	if !ok {
		q = containers.NewRingQueue[*PooledTarget](p.maxIdle)
		p.idle[target.Spec] = q
	}
	if err := q.Enqueue(target); err != nil {
		// idle list for this spec is full
		return p.destroy(target)
	}
	return nil
}

func (p *TargetPool) destroy(target *PooledTarget) error {
	p.stats.Destroyed++
	if err := p.backend.DestroyTarget(target.Handle); err != nil {
		return fmt.Errorf("destroy render target %s: %w", target.ID, err)
	}
	return nil
}

// Trim destroys every idle target.
func (p *TargetPool) Trim() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trim()
}

func (p *TargetPool) trim() error {
	var errs []error
	for spec, q := range p.idle {
		for _, target := range q.Drain() {
			if err := p.destroy(target); err != nil {
				errs = append(errs, err)
			}
		}
		delete(p.idle, spec)
	}
	return errors.Join(errs...)
}

// Shutdown trims the pool and refuses further acquisitions. Targets still
// outstanding are reported as leaked; they are destroyed when released.
func (p *TargetPool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	err := p.trim()
	if n := len(p.outstanding); n > 0 {
		for id, t := range p.outstanding {
			p.logger.Warn("render target leaked", "id", id, "spec", t.Spec.String())
		}
		err = errors.Join(err, fmt.Errorf("%d render target(s) still outstanding at shutdown", n))
	}
	return err
}

func (p *TargetPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Outstanding = len(p.outstanding)
	for _, q := range p.idle {
		s.Idle += q.Len()
	}
	return s
}
