package renderer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

func newTestPipeline(t *testing.T, backend Backend, mutate func(*PipelineConfig)) *Pipeline {
	t.Helper()
	cfg := DefaultPipelineConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPipeline(cfg, backend, nil)
	require.NoError(t, err)
	return p
}

func TestPipelineConfigValidation(t *testing.T) {
	for _, samples := range []uint8{0, 3, 8, 16} {
		cfg := DefaultPipelineConfig()
		cfg.MSAASamples = samples
		assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidConfig, "samples %d", samples)
	}

	cfg := DefaultPipelineConfig()
	cfg.ResolveShader = ""
	_, err := NewPipeline(cfg, newFakeBackend(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = NewPipeline(DefaultPipelineConfig(), nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestRenderFrameDrawOrder(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, nil)

	require.NoError(t, p.RenderFrame(context.Background(), []*components.Camera{testCamera("main")}, testScene(t)))

	require.Len(t, backend.submitted, 1)
	cb := backend.submitted[0]
	assert.Equal(t, "camera:main", cb.Label())
	assert.True(t, cb.released)
	assert.Equal(t, []string{
		"SetRenderTarget",
		"Clear",
		"DrawRenderers",
		"DrawSkybox",
		"DrawRenderers",
		"SetGlobalTexture",
		"Blit",
	}, cb.names())
	assert.Equal(t, []string{"A", "B"}, cb.commands[2].Objects)
	assert.Equal(t, []string{"T"}, cb.commands[4].Objects)
	assert.Equal(t, metadata.ResolveDepthSlot, cb.commands[5].Slot)
	assert.Equal(t, "main-rt", cb.commands[6].Dst.Name)

	stats := p.LastFrame()
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 1, stats.CamerasRendered)
	assert.Equal(t, 3, stats.DrawCalls)
	assert.Zero(t, p.Pool().Stats().Outstanding)
	assert.Equal(t, uint64(1), p.Metrics().TotalFrames())
}

func TestPassExecutorStates(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, nil)
	camera := testCamera("main")

	seq, err := Cull(camera, testScene(t).Objects())
	require.NoError(t, err)
	exec := newPassExecutor(p, camera, newViewPacket(camera, 4, testScene(t).SkyboxColour()), BuildDrawList(seq))

	require.NoError(t, exec.Record())
	assert.Equal(t, []PassState{
		PassBegin, PassClearTargets, PassOpaque, PassSkybox,
		PassTransparent, PassResolve, PassCleanup,
	}, exec.Visited())
	assert.Zero(t, p.Pool().Stats().Outstanding)

	require.NoError(t, exec.Submit())
	assert.Equal(t, PassSubmitted, exec.State())
	assert.Equal(t, "Submitted", exec.State().String())

	assert.ErrorIs(t, exec.Record(), core.ErrInvalidPassTransition)
	assert.ErrorIs(t, exec.Submit(), core.ErrInvalidPassTransition)
	assert.ErrorIs(t, exec.advance(PassOpaque), core.ErrInvalidPassTransition)
}

func TestRenderFrameResolveExtent(t *testing.T) {
	for _, samples := range []uint8{1, 2, 4} {
		t.Run(fmt.Sprintf("%dx", samples), func(t *testing.T) {
			p := newTestPipeline(t, newFakeBackend(), func(c *PipelineConfig) { c.MSAASamples = samples })

			camera := components.NewCamera("main", metadata.RenderTextureDestination("out", 96, 48))
			camera.SetPosition(testCamera("main").GetPosition())
			require.NoError(t, p.RenderFrame(context.Background(), []*components.Camera{camera}, testScene(t)))

			resolved := p.LastFrame().Resolved
			require.Len(t, resolved, 1)
			assert.Equal(t, uint32(96), resolved[0].Width)
			assert.Equal(t, uint32(48), resolved[0].Height)
			assert.Equal(t, samples, resolved[0].Samples)
		})
	}
}

func TestRenderFrameAllocationFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.maxSamples = 1
	p := newTestPipeline(t, backend, nil)

	msaa := testCamera("msaa")
	single := testCamera("single")
	single.SampleCount = 1

	err := p.RenderFrame(context.Background(), []*components.Camera{msaa, single}, testScene(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAllocation)

	var frameErrs FrameErrors
	require.ErrorAs(t, err, &frameErrs)
	require.Len(t, frameErrs, 1)
	assert.Same(t, msaa, frameErrs[0].Camera)

	// only the single sampled camera reached the backend
	require.Len(t, backend.submitted, 1)
	assert.Equal(t, "camera:single", backend.submitted[0].Label())
	assert.Zero(t, p.Pool().Stats().Outstanding)

	stats := p.LastFrame()
	assert.Equal(t, 1, stats.CamerasFailed)
	assert.Equal(t, 1, stats.CamerasRendered)
}

func TestRenderFramePassFailureStillSubmits(t *testing.T) {
	backend := newFakeBackend()
	backend.failDraw = func(objects []*VisibleObject) error {
		if objects[0].Object.Material.Transparent() {
			return errInjected
		}
		return nil
	}
	p := newTestPipeline(t, backend, nil)

	err := p.RenderFrame(context.Background(), []*components.Camera{testCamera("main")}, testScene(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPassSubmission)
	assert.ErrorIs(t, err, errInjected)

	var passErr *PassSubmissionError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PassTransparent, passErr.Pass)
	assert.Equal(t, "main", passErr.Camera)

	require.Len(t, backend.submitted, 1)
	assert.Equal(t, []string{"SetRenderTarget", "Clear", "DrawRenderers", "DrawSkybox"}, backend.submitted[0].names())
	assert.Zero(t, p.Pool().Stats().Outstanding)
}

func TestRenderFrameMissingShaderPass(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, func(c *PipelineConfig) { c.ShaderPass = "ForwardLit" })

	err := p.RenderFrame(context.Background(), []*components.Camera{testCamera("main")}, testScene(t))
	assert.ErrorIs(t, err, core.ErrMissingShaderPass)

	var passErr *PassSubmissionError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PassOpaque, passErr.Pass)
}

func TestRenderFrameIsolatesCameras(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, nil)

	broken := testCamera("broken")
	broken.NearClip = 0
	disabled := testCamera("disabled")
	disabled.Enabled = false
	empty := testCamera("empty")
	empty.Viewport.Height = 0

	cameras := []*components.Camera{broken, testCamera("first"), disabled, empty, testCamera("second")}
	err := p.RenderFrame(context.Background(), cameras, testScene(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCulling)

	var frameErrs FrameErrors
	require.ErrorAs(t, err, &frameErrs)
	require.Len(t, frameErrs, 1)
	assert.Same(t, broken, frameErrs[0].Camera)

	require.Len(t, backend.submitted, 2)
	assert.Equal(t, "camera:first", backend.submitted[0].Label())
	assert.Equal(t, "camera:second", backend.submitted[1].Label())

	stats := p.LastFrame()
	assert.Equal(t, 2, stats.CamerasRendered)
	assert.Equal(t, 2, stats.CamerasSkipped)
	assert.Equal(t, 1, stats.CamerasFailed)
}

func TestRenderFrameCancelledBetweenCameras(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.RenderFrame(ctx, []*components.Camera{testCamera("a"), testCamera("b")}, testScene(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, backend.submitted)
}

func TestRenderFrameSubmitFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failSubmit = errInjected
	p := newTestPipeline(t, backend, nil)

	err := p.RenderFrame(context.Background(), []*components.Camera{testCamera("main")}, testScene(t))
	assert.ErrorIs(t, err, errInjected)

	var passErr *PassSubmissionError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PassSubmitted, passErr.Pass)
}

func TestRenderFrameParallelKeepsSubmitOrder(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, func(c *PipelineConfig) {
		c.Parallel = true
		c.MaxIdlePerSpec = 1
	})

	var cameras []*components.Camera
	var want []string
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("cam%02d", i)
		cameras = append(cameras, testCamera(name))
		want = append(want, "camera:"+name)
	}

	for frame := 0; frame < 3; frame++ {
		backend.submitted = nil
		require.NoError(t, p.RenderFrame(context.Background(), cameras, testScene(t)))

		var got []string
		for _, cb := range backend.submitted {
			got = append(got, cb.Label())
		}
		assert.Equal(t, want, got)
	}
	assert.Zero(t, p.Pool().Stats().Outstanding)
	assert.Equal(t, uint64(3), p.LastFrame().Frame)

	require.NoError(t, p.Shutdown())
	assert.Zero(t, backend.liveCount())
}

func TestRenderFrameResolvesIntoViewport(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, nil)

	camera := testCamera("right")
	camera.Viewport = components.Viewport{X: 32, Y: 16, Width: 32, Height: 48}
	require.NoError(t, p.RenderFrame(context.Background(), []*components.Camera{camera}, testScene(t)))

	require.Len(t, backend.submitted, 1)
	blit := backend.submitted[0].commands[6]
	assert.Equal(t, "Blit", blit.Name)
	assert.Equal(t, camera.Viewport, blit.Viewport)

	resolved := p.LastFrame().Resolved
	require.Len(t, resolved, 1)
	assert.Equal(t, camera.Viewport, resolved[0].Viewport)
	assert.Equal(t, uint32(64), resolved[0].Width)
}

func TestRenderFrameViewportOutsideDestination(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPipeline(t, backend, nil)

	camera := testCamera("main")
	camera.Viewport = components.Viewport{X: 40, Width: 32, Height: 64}
	err := p.RenderFrame(context.Background(), []*components.Camera{camera}, testScene(t))
	assert.ErrorIs(t, err, core.ErrPassSubmission)

	var passErr *PassSubmissionError
	require.ErrorAs(t, err, &passErr)
	assert.Equal(t, PassResolve, passErr.Pass)
	assert.Equal(t, 1, p.LastFrame().CamerasFailed)
	assert.Zero(t, p.Pool().Stats().Outstanding)
}

func TestRenderFrameRejectsRepeatedCamera(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%t", parallel), func(t *testing.T) {
			backend := newFakeBackend()
			p := newTestPipeline(t, backend, func(c *PipelineConfig) { c.Parallel = parallel })

			main := testCamera("main")
			other := testCamera("other")
			err := p.RenderFrame(context.Background(), []*components.Camera{main, other, main}, testScene(t))
			assert.ErrorIs(t, err, core.ErrInvalidConfig)

			var frameErrs FrameErrors
			require.ErrorAs(t, err, &frameErrs)
			require.Len(t, frameErrs, 1)
			assert.Same(t, main, frameErrs[0].Camera)

			require.Len(t, backend.submitted, 2)
			assert.Equal(t, "camera:main", backend.submitted[0].Label())
			assert.Equal(t, "camera:other", backend.submitted[1].Label())

			stats := p.LastFrame()
			assert.Equal(t, 2, stats.CamerasRendered)
			assert.Equal(t, 1, stats.CamerasFailed)
		})
	}
}
