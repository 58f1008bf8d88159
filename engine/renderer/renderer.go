package renderer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

const (
	DefaultMSAASamples     uint8  = 4
	DefaultResolveMaterial string = "CustomResolve"
	DefaultResolveShader   string = "Resolve/Box"
)

// PipelineConfig is read once when the pipeline is built. Changing it
// requires building a new pipeline.
type PipelineConfig struct {
	MSAASamples     uint8  `toml:"msaa_samples"`
	ResolveMaterial string `toml:"resolve_material"`
	ResolveShader   string `toml:"resolve_shader"`
	ShaderPass      string `toml:"shader_pass"`
	MaxIdlePerSpec  int    `toml:"max_idle_per_spec"`
	// Record cameras concurrently. Submission keeps the camera order.
	Parallel bool `toml:"parallel"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MSAASamples:     DefaultMSAASamples,
		ResolveMaterial: DefaultResolveMaterial,
		ResolveShader:   DefaultResolveShader,
		ShaderPass:      metadata.DefaultShaderPass,
		MaxIdlePerSpec:  DefaultMaxIdlePerSpec,
	}
}

func (c PipelineConfig) Validate() error {
	switch c.MSAASamples {
	case 1, 2, 4:
	default:
		return fmt.Errorf("msaa_samples must be 1, 2 or 4, got %d: %w", c.MSAASamples, core.ErrInvalidConfig)
	}
	if c.ResolveShader == "" {
		return fmt.Errorf("resolve_shader is empty: %w", core.ErrInvalidConfig)
	}
	if c.ShaderPass == "" {
		return fmt.Errorf("shader_pass is empty: %w", core.ErrInvalidConfig)
	}
	if c.MaxIdlePerSpec < 0 {
		return fmt.Errorf("max_idle_per_spec is negative: %w", core.ErrInvalidConfig)
	}
	return nil
}

// SceneProvider supplies the objects to render, in a stable order.
type SceneProvider interface {
	Objects() []*scene.Object
	SkyboxColour() math.Vec4
}

type FrameStats struct {
	Frame           uint64
	CamerasRendered int
	CamerasSkipped  int
	CamerasFailed   int
	DrawCalls       int
	FrameTime       time.Duration
	Resolved        []*ResolveResult
}

// Pipeline renders cameras with a forward pass and a material driven
// MSAA resolve.
type Pipeline struct {
	config  PipelineConfig
	backend Backend
	pool    *TargetPool
	resolve *ResolveStage
	logger  *log.Logger
	metrics *core.Metrics

	mu     sync.Mutex
	frame  uint64
	last   FrameStats
	closed bool
}

func NewPipeline(config PipelineConfig, backend Backend, logger *log.Logger) (*Pipeline, error) {
	if backend == nil {
		return nil, fmt.Errorf("pipeline needs a backend: %w", core.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	resolve, err := NewResolveStage(metadata.NewResolveMaterial(config.ResolveMaterial, config.ResolveShader))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NewLogger("pipeline")
	}

	logger.Info("pipeline created",
		"backend", backend.Name(),
		"msaa", config.MSAASamples,
		"resolve", config.ResolveShader,
		"parallel", config.Parallel)

	return &Pipeline{
		config:  config,
		backend: backend,
		pool:    NewTargetPool(backend, config.MaxIdlePerSpec, logger.WithPrefix("pool")),
		resolve: resolve,
		logger:  logger,
		metrics: core.NewMetrics(),
	}, nil
}

func (p *Pipeline) Config() PipelineConfig {
	return p.config
}

func (p *Pipeline) Pool() *TargetPool {
	return p.pool
}

func (p *Pipeline) Metrics() *core.Metrics {
	return p.metrics
}

// LastFrame returns the statistics of the most recent RenderFrame call.
func (p *Pipeline) LastFrame() FrameStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// cameraJob is the outcome of recording one camera.
type cameraJob struct {
	camera   *components.Camera
	executor *PassExecutor
	skipped  bool
	err      error
}

// RenderFrame renders every camera in order. A failing camera does not
// stop the others; failures are returned as FrameErrors. ctx is only
// looked at between cameras, a camera that started always finishes. A
// camera listed more than once is rendered for its first entry only; the
// repeats fail with ErrInvalidConfig.
func (p *Pipeline) RenderFrame(ctx context.Context, cameras []*components.Camera, provider SceneProvider) error {
	clock := core.NewClock()
	clock.Start()

	objects := provider.Objects()
	// Resolve dirty transforms up front so recording only reads them.
	for _, o := range objects {
		o.Transform.GetWorld()
	}
	skybox := provider.SkyboxColour()

	duplicates := duplicateCameras(cameras)

	var jobs []*cameraJob
	if p.config.Parallel {
		jobs = p.recordParallel(ctx, cameras, duplicates, objects, skybox)
	} else {
		jobs = make([]*cameraJob, 0, len(cameras))
		for i, camera := range cameras {
			if err := ctx.Err(); err != nil {
				jobs = append(jobs, &cameraJob{camera: camera, err: err})
				continue
			}
			if duplicates[i] {
				jobs = append(jobs, duplicateJob(camera))
				continue
			}
			job := p.recordCamera(camera, objects, skybox)
			p.submit(job)
			jobs = append(jobs, job)
		}
	}

	stats := FrameStats{}
	var errs FrameErrors
	for _, job := range jobs {
		switch {
		case job.skipped:
			stats.CamerasSkipped++
		case job.err != nil:
			stats.CamerasFailed++
		default:
			stats.CamerasRendered++
		}
		if job.executor != nil {
			stats.DrawCalls += job.executor.drawCalls
			if r := job.executor.Result(); r != nil {
				stats.Resolved = append(stats.Resolved, r)
			}
		}
		if job.err != nil {
			p.logger.Error("camera failed", "camera", job.camera.Name, "err", job.err)
			errs = append(errs, &CameraError{Camera: job.camera, Err: job.err})
		}
	}

	clock.Update()
	stats.FrameTime = clock.Elapsed()
	p.metrics.Update(stats.FrameTime)

	p.mu.Lock()
	p.frame++
	stats.Frame = p.frame
	p.last = stats
	p.mu.Unlock()

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// duplicateCameras marks every repeated occurrence of a camera. A camera
// caches its view matrix, so it is rendered once per frame.
func duplicateCameras(cameras []*components.Camera) []bool {
	seen := make(map[*components.Camera]bool, len(cameras))
	out := make([]bool, len(cameras))
	for i, c := range cameras {
		out[i] = seen[c]
		seen[c] = true
	}
	return out
}

func duplicateJob(camera *components.Camera) *cameraJob {
	return &cameraJob{
		camera: camera,
		err:    fmt.Errorf("camera %q listed more than once in a frame: %w", camera.Name, core.ErrInvalidConfig),
	}
}

func (p *Pipeline) recordParallel(ctx context.Context, cameras []*components.Camera, duplicates []bool, objects []*scene.Object, skybox math.Vec4) []*cameraJob {
	jobs := make([]*cameraJob, len(cameras))

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, camera := range cameras {
		if err := ctx.Err(); err != nil {
			jobs[i] = &cameraJob{camera: camera, err: err}
			continue
		}
		if duplicates[i] {
			jobs[i] = duplicateJob(camera)
			continue
		}
		// each goroutine owns its camera; GetView updates the cached matrix
		g.Go(func() error {
			jobs[i] = p.recordCamera(camera, objects, skybox)
			return nil
		})
	}
	// camera failures live in the jobs, never in the group
	_ = g.Wait()

	for _, job := range jobs {
		p.submit(job)
	}
	return jobs
}

func (p *Pipeline) recordCamera(camera *components.Camera, objects []*scene.Object, skybox math.Vec4) *cameraJob {
	job := &cameraJob{camera: camera}
	if !camera.Enabled {
		job.skipped = true
		return job
	}

	samples := camera.SampleCount
	if samples == 0 {
		samples = p.config.MSAASamples
	}

	visible, err := Cull(camera, objects)
	if err != nil {
		job.err = err
		return job
	}
	if !camera.Viewport.HasArea() {
		p.logger.Debug("camera has no viewport area", "camera", camera.Name)
		job.skipped = true
		return job
	}

	drawList := BuildDrawList(visible)
	view := newViewPacket(camera, samples, skybox)

	job.executor = newPassExecutor(p, camera, view, drawList)
	job.err = job.executor.Record()
	return job
}

func (p *Pipeline) submit(job *cameraJob) {
	if job.executor == nil || job.executor.State() != PassCleanup {
		return
	}
	if err := job.executor.Submit(); err != nil {
		if job.err == nil {
			job.err = err
		} else {
			job.err = fmt.Errorf("%w; %w", job.err, err)
		}
	}
}

// Shutdown releases the pool. The pipeline must not be used afterwards.
func (p *Pipeline) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	stats := p.pool.Stats()
	p.logger.Info("pipeline shut down",
		"frames", p.metrics.TotalFrames(),
		"allocated", stats.Allocated,
		"reused", stats.Reused)
	return p.pool.Shutdown()
}
