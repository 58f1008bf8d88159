package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/resolvepipe/engine/assets"
	"github.com/spaghettifunk/resolvepipe/engine/assets/loaders"
	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/software"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Frame pacing used when the number of frames is unbounded.
const targetFrameTime = time.Second / 60

type Options struct {
	// Pipeline asset. Defaults are used when empty.
	ConfigPath string
	// Scene file. The game's FnLoadScene is used when empty.
	ScenePath string
	// Image the backbuffer is written to after the run, .bmp or .tiff.
	// Render textures are written next to it.
	OutPath string
	// Number of frames to render, 0 renders until the context is done.
	Frames int
	// Log every executed backend command.
	Trace bool
	// Reload the pipeline asset and the scene when they change on disk.
	Watch bool
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	options      Options
	logger       *log.Logger

	bus          *core.EventBus
	assetManager *assets.AssetManager
	backend      *software.Backend
	clock        *core.Clock
	lastTime     time.Duration

	// guards everything the event handlers read
	mu       sync.Mutex
	asset    *loaders.PipelineAsset
	pipeline *renderer.Pipeline
	scene    *scene.Scene
	cameras  []*components.Camera
	width    uint32
	height   uint32

	reloadConfig atomic.Bool
	reloadScene  atomic.Bool
	quit         atomic.Bool
	// packed width<<32 | height, zero when no resize is pending
	pendingSize atomic.Uint64
}

func New(g *Game, opts Options) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("game has no application config: %w", core.ErrInvalidConfig)
	}
	if opts.ScenePath == "" && g.FnLoadScene == nil {
		return nil, fmt.Errorf("no scene file and no scene loader: %w", core.ErrInvalidConfig)
	}
	if opts.Frames < 0 {
		return nil, fmt.Errorf("frames must not be negative: %w", core.ErrInvalidConfig)
	}
	bus := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		options:      opts,
		logger:       core.NewLogger("engine"),
		bus:          bus,
		assetManager: assets.NewAssetManager(bus),
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already initialized")
	}
	e.currentStage = EngineStageInitializing

	asset, err := e.loadPipelineAsset()
	if err != nil {
		return err
	}
	core.SetLogLevel(asset.LogLevel)

	opts := []software.Option{software.WithLogger(core.NewLogger("software"))}
	if e.options.Trace {
		tracer := core.NewLogger("trace")
		opts = append(opts, software.WithTrace(func(buffer, command string) {
			tracer.Info(command, "buffer", buffer)
		}))
	}
	e.backend = software.New(opts...)

	pipeline, err := renderer.NewPipeline(asset.Pipeline, e.backend, core.NewLogger("pipeline"))
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.asset = asset
	e.pipeline = pipeline
	e.width, e.height = asset.Width, asset.Height
	e.mu.Unlock()

	s, cameras, err := e.loadScene(asset.Width, asset.Height)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.scene, e.cameras = s, cameras
	e.mu.Unlock()

	// register some events
	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.bus.Register(core.EVENT_CODE_PIPELINE_CONFIG_CHANGED, e, e.onAssetChanged)
	e.bus.Register(core.EVENT_CODE_SCENE_CHANGED, e, e.onAssetChanged)

	if e.options.Watch {
		var paths []string
		if e.options.ConfigPath != "" {
			paths = append(paths, e.options.ConfigPath)
		}
		if e.options.ScenePath != "" {
			paths = append(paths, e.options.ScenePath)
		}
		if len(paths) == 0 {
			e.logger.Warn("watch requested but nothing to watch")
		} else if err := e.assetManager.Watch(paths...); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	e.logger.Info("engine initialized",
		"name", e.gameInstance.ApplicationConfig.Name,
		"width", asset.Width,
		"height", asset.Height,
		"cameras", len(cameras),
		"objects", len(s.Objects()))
	return nil
}

func (e *Engine) loadPipelineAsset() (*loaders.PipelineAsset, error) {
	if e.options.ConfigPath == "" {
		asset := loaders.DefaultPipelineAsset()
		cfg := e.gameInstance.ApplicationConfig
		if cfg.Name != "" {
			asset.Name = cfg.Name
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			asset.Width, asset.Height = cfg.Width, cfg.Height
		}
		if cfg.LogLevel != "" {
			asset.LogLevel = cfg.LogLevel
		}
		return asset, asset.Validate()
	}
	res, err := e.assetManager.Load(e.options.ConfigPath, nil)
	if err != nil {
		return nil, err
	}
	asset, ok := res.Data.(*loaders.PipelineAsset)
	if !ok {
		return nil, fmt.Errorf("%s is not a pipeline asset", e.options.ConfigPath)
	}
	return asset, nil
}

func (e *Engine) loadScene(width, height uint32) (*scene.Scene, []*components.Camera, error) {
	if e.options.ScenePath == "" {
		return e.gameInstance.FnLoadScene(width, height)
	}
	res, err := e.assetManager.Load(e.options.ScenePath, loaders.SceneParams{Width: width, Height: height})
	if err != nil {
		return nil, nil, err
	}
	asset, ok := res.Data.(*loaders.SceneAsset)
	if !ok {
		return nil, nil, fmt.Errorf("%s is not a scene", e.options.ScenePath)
	}
	return asset.Scene, asset.Cameras, nil
}

// Run renders frames until the frame budget is spent, ctx is done or a quit
// event arrives, then presents the result to the output file.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var failedFrames int
	for frame := 0; e.options.Frames == 0 || frame < e.options.Frames; frame++ {
		if ctx.Err() != nil || e.quit.Load() {
			break
		}
		frameStart := time.Now()

		e.applyPending()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()
		e.lastTime = currentTime

		e.mu.Lock()
		pipeline, s, cameras := e.pipeline, e.scene, e.cameras
		e.mu.Unlock()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta, s, cameras); err != nil {
				e.logger.Error("game update failed, shutting down", "err", err)
				return err
			}
		}

		if err := pipeline.RenderFrame(ctx, cameras, s); err != nil {
			var fe renderer.FrameErrors
			if !errors.As(err, &fe) {
				return err
			}
			failedFrames++
			e.logger.Warn("frame rendered with errors", "frame", frame, "failed", len(fe))
		}

		if e.options.Frames == 0 {
			if err := pace(ctx, targetFrameTime-time.Since(frameStart)); err != nil {
				break
			}
		}
	}

	e.mu.Lock()
	stats := e.pipeline.LastFrame()
	metrics := e.pipeline.Metrics()
	e.mu.Unlock()
	e.logger.Info("run finished",
		"frames", metrics.TotalFrames(),
		"failed_frames", failedFrames,
		"avg_ms", fmt.Sprintf("%.3f", metrics.FrameTime()),
		"draw_calls", stats.DrawCalls)

	if e.options.OutPath != "" {
		return e.present(e.options.OutPath)
	}
	return nil
}

func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// present writes the backbuffer to path and every render texture to
// <path stem>.<texture name><ext>.
func (e *Engine) present(path string) error {
	format, err := software.ImageFormatFromPath(path)
	if err != nil {
		return err
	}
	if err := writeImage(path, func(f *os.File) error { return e.backend.Present(f, format) }); err != nil {
		return err
	}
	e.logger.Info("backbuffer written", "path", path)

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	e.mu.Lock()
	cameras := e.cameras
	e.mu.Unlock()
	for _, c := range cameras {
		if c.Destination.Kind != metadata.DestinationRenderTexture {
			continue
		}
		if _, ok := e.backend.RenderTexture(c.Destination.Name); !ok {
			continue
		}
		texPath := fmt.Sprintf("%s.%s%s", stem, c.Destination.Name, ext)
		name := c.Destination.Name
		if err := writeImage(texPath, func(f *os.File) error { return e.backend.PresentTexture(name, f, format) }); err != nil {
			return err
		}
		e.logger.Info("render texture written", "path", texPath)
	}
	return nil
}

func writeImage(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// applyPending runs the reloads and resizes requested by events since the
// last frame. Failed reloads keep the current state.
func (e *Engine) applyPending() {
	if e.reloadConfig.Swap(false) {
		if err := e.reloadPipeline(); err != nil {
			e.logger.Error("pipeline reload failed, keeping the current one", "err", err)
		}
	}
	if e.reloadScene.Swap(false) {
		e.mu.Lock()
		width, height := e.width, e.height
		e.mu.Unlock()
		s, cameras, err := e.loadScene(width, height)
		if err != nil {
			e.logger.Error("scene reload failed, keeping the current one", "err", err)
		} else {
			e.mu.Lock()
			e.scene, e.cameras = s, cameras
			e.mu.Unlock()
			e.logger.Info("scene reloaded", "cameras", len(cameras), "objects", len(s.Objects()))
		}
	}
	if packed := e.pendingSize.Swap(0); packed != 0 {
		e.resize(uint32(packed>>32), uint32(packed))
	}
}

// reloadPipeline builds a new pipeline from the asset on disk. The config
// of a pipeline never changes, so a new one replaces the old.
func (e *Engine) reloadPipeline() error {
	asset, err := e.loadPipelineAsset()
	if err != nil {
		return err
	}
	pipeline, err := renderer.NewPipeline(asset.Pipeline, e.backend, core.NewLogger("pipeline"))
	if err != nil {
		return err
	}
	core.SetLogLevel(asset.LogLevel)

	e.mu.Lock()
	old := e.pipeline
	e.pipeline = pipeline
	e.asset = asset
	resized := asset.Width != e.width || asset.Height != e.height
	e.mu.Unlock()

	if err := old.Shutdown(); err != nil {
		e.logger.Warn("previous pipeline did not shut down cleanly", "err", err)
	}
	if resized {
		e.resize(asset.Width, asset.Height)
	}
	e.logger.Info("pipeline reloaded", "msaa", asset.Pipeline.MSAASamples, "resolve", asset.Pipeline.ResolveShader)
	return nil
}

func (e *Engine) resize(width, height uint32) {
	e.mu.Lock()
	e.width, e.height = width, height
	for _, c := range e.cameras {
		if c.Destination.Kind == metadata.DestinationBackbuffer {
			c.SetDestination(metadata.BackbufferDestination(width, height))
		}
	}
	e.mu.Unlock()

	e.logger.Debug("resized", "width", width, "height", height)
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			e.logger.Error("game resize failed", "err", err)
		}
	}
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		e.logger.Info("quit requested")
		e.quit.Store(true)
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code != core.EVENT_CODE_RESIZED {
		return false
	}
	width, height := data.U32[0], data.U32[1]
	if width == 0 || height == 0 {
		e.logger.Warn("ignoring resize to an empty backbuffer", "width", width, "height", height)
		return true
	}
	e.pendingSize.Store(uint64(width)<<32 | uint64(height))
	return true
}

func (e *Engine) onAssetChanged(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_PIPELINE_CONFIG_CHANGED:
		e.reloadConfig.Store(true)
	case core.EVENT_CODE_SCENE_CHANGED:
		e.reloadScene.Store(true)
	default:
		return false
	}
	e.logger.Debug("reload scheduled", "path", data.Path)
	return true
}

func (e *Engine) Bus() *core.EventBus {
	return e.bus
}

func (e *Engine) Backend() *software.Backend {
	return e.backend
}

func (e *Engine) Pipeline() *renderer.Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline
}

func (e *Engine) Cameras() []*components.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cameras
}

func (e *Engine) Scene() *scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	errs = append(errs, e.assetManager.Shutdown())
	e.mu.Lock()
	pipeline := e.pipeline
	e.mu.Unlock()
	if pipeline != nil {
		errs = append(errs, pipeline.Shutdown())
	}
	errs = append(errs, e.bus.Shutdown())
	return errors.Join(errs...)
}
