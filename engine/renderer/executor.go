package renderer

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// PassState is a step of a single camera render.
type PassState int

const (
	passIdle PassState = iota - 1
	PassBegin
	PassClearTargets
	PassOpaque
	PassSkybox
	PassTransparent
	PassResolve
	PassCleanup
	PassSubmitted
)

func (s PassState) String() string {
	switch s {
	case passIdle:
		return "Idle"
	case PassBegin:
		return "Begin"
	case PassClearTargets:
		return "ClearTargets"
	case PassOpaque:
		return "OpaquePass"
	case PassSkybox:
		return "SkyboxPass"
	case PassTransparent:
		return "TransparentPass"
	case PassResolve:
		return "ResolvePass"
	case PassCleanup:
		return "Cleanup"
	case PassSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("PassState(%d)", int(s))
	}
}

var clearColour = math.NewVec4(0, 0, 0, 0)

const clearDepth float32 = 1

// PassExecutor records the passes of one camera into a command buffer.
// It is single use: every state is entered at most once.
type PassExecutor struct {
	state   PassState
	visited []PassState

	camera   *components.Camera
	view     *ViewPacket
	drawList *DrawList
	samples  uint8

	backend    Backend
	pool       *TargetPool
	resolve    *ResolveStage
	shaderPass string
	logger     *log.Logger

	cb          CommandBuffer
	color       *PooledTarget
	depth       *PooledTarget
	submittable bool
	resolved    *ResolveResult
	drawCalls   int
}

func newPassExecutor(p *Pipeline, camera *components.Camera, view *ViewPacket, drawList *DrawList) *PassExecutor {
	return &PassExecutor{
		state:      passIdle,
		camera:     camera,
		view:       view,
		drawList:   drawList,
		samples:    view.Samples,
		backend:    p.backend,
		pool:       p.pool,
		resolve:    p.resolve,
		shaderPass: p.config.ShaderPass,
		logger:     p.logger,
	}
}

func (e *PassExecutor) State() PassState {
	return e.state
}

// Visited lists the states entered so far, in order.
func (e *PassExecutor) Visited() []PassState {
	return e.visited
}

func (e *PassExecutor) Result() *ResolveResult {
	return e.resolved
}

func (e *PassExecutor) advance(next PassState) error {
	allowed := next == e.state+1 || (next == PassCleanup && e.state < PassCleanup)
	if !allowed {
		return fmt.Errorf("%s -> %s: %w", e.state, next, core.ErrInvalidPassTransition)
	}
	e.state = next
	e.visited = append(e.visited, next)
	return nil
}

// Record runs Begin through Cleanup. Cleanup always runs once Begin was
// entered, and the targets are back in the pool when Record returns.
func (e *PassExecutor) Record() (err error) {
	if err := e.advance(PassBegin); err != nil {
		return err
	}
	e.cb = e.backend.NewCommandBuffer(fmt.Sprintf("camera:%s", e.camera.Name))

	defer func() {
		if cerr := e.cleanup(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := e.begin(); err != nil {
		return err
	}

	// From here on, the command buffer holds work that is submitted even if
	// a later pass fails.
	e.submittable = true

	passes := []struct {
		state PassState
		run   func() error
	}{
		{PassClearTargets, e.clearTargets},
		{PassOpaque, e.opaquePass},
		{PassSkybox, e.skyboxPass},
		{PassTransparent, e.transparentPass},
		{PassResolve, e.resolvePass},
	}
	for _, pass := range passes {
		if err := e.advance(pass.state); err != nil {
			return err
		}
		if err := pass.run(); err != nil {
			return &PassSubmissionError{Camera: e.camera.Name, Pass: pass.state, Err: err}
		}
	}
	return nil
}

func (e *PassExecutor) begin() error {
	width, height := e.camera.Viewport.Width, e.camera.Viewport.Height
	multisampled := e.samples > 1

	colorSpec := metadata.RenderTargetSpec{
		Width:   width,
		Height:  height,
		Format:  metadata.FormatDefaultHDR,
		Samples: e.samples,
		Usage:   metadata.TextureUsageColorAttachment | metadata.TextureUsageSampled | metadata.TextureUsageTransient,
		BindMS:  multisampled,
	}
	depthSpec := colorSpec
	depthSpec.Format = metadata.FormatDepth32
	depthSpec.Usage = metadata.TextureUsageDepthAttachment | metadata.TextureUsageSampled | metadata.TextureUsageTransient

	var err error
	if e.color, err = e.pool.Acquire(colorSpec); err != nil {
		return err
	}
	if e.depth, err = e.pool.Acquire(depthSpec); err != nil {
		return err
	}
	if err := e.cb.SetRenderTarget(e.color.Handle, e.depth.Handle); err != nil {
		return &PassSubmissionError{Camera: e.camera.Name, Pass: PassBegin, Err: err}
	}
	return nil
}

func (e *PassExecutor) clearTargets() error {
	return e.cb.ClearRenderTarget(metadata.ClearFlagAll, clearColour, clearDepth)
}

func (e *PassExecutor) opaquePass() error {
	return e.draw(e.drawList.Opaque)
}

func (e *PassExecutor) transparentPass() error {
	return e.draw(e.drawList.Transparent)
}

func (e *PassExecutor) draw(objects []*VisibleObject) error {
	if len(objects) == 0 {
		return nil
	}
	if err := e.cb.DrawRenderers(e.shaderPass, e.view, objects); err != nil {
		return err
	}
	e.drawCalls += len(objects)
	return nil
}

func (e *PassExecutor) skyboxPass() error {
	return e.cb.DrawSkybox(e.view)
}

func (e *PassExecutor) resolvePass() error {
	result, err := e.resolve.Record(e.cb, e.color, e.depth, e.camera.Destination, e.camera.Viewport)
	if err != nil {
		return err
	}
	e.resolved = result
	return nil
}

func (e *PassExecutor) cleanup() error {
	if err := e.advance(PassCleanup); err != nil {
		return err
	}
	var errs []error
	for _, t := range []*PooledTarget{e.color, e.depth} {
		if t == nil {
			continue
		}
		if err := e.pool.Release(t); err != nil {
			errs = append(errs, err)
		}
	}
	e.color, e.depth = nil, nil
	return errors.Join(errs...)
}

// Submit hands the recorded command buffer to the backend. Nothing is
// submitted when Begin failed.
func (e *PassExecutor) Submit() error {
	if e.state != PassCleanup {
		return fmt.Errorf("%s -> %s: %w", e.state, PassSubmitted, core.ErrInvalidPassTransition)
	}
	defer e.cb.Release()

	if !e.submittable {
		e.logger.Debug("nothing to submit", "camera", e.camera.Name)
		return nil
	}
	if err := e.advance(PassSubmitted); err != nil {
		return err
	}
	if err := e.backend.Submit(e.cb); err != nil {
		return &PassSubmissionError{Camera: e.camera.Name, Pass: PassSubmitted, Err: err}
	}
	return nil
}
