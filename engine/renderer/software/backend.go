package software

import (
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/renderer"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// TraceFunc receives every command the backend executes.
type TraceFunc func(buffer string, command string)

type Option func(*Backend)

// WithSampleCounts restricts the MSAA levels the device accepts.
func WithSampleCounts(counts ...uint8) Option {
	return func(b *Backend) {
		b.sampleCounts = make(map[uint8]bool, len(counts))
		for _, c := range counts {
			b.sampleCounts[c] = true
		}
	}
}

// WithFormats restricts the target formats the device accepts.
func WithFormats(formats ...metadata.TextureFormat) Option {
	return func(b *Backend) {
		b.formats = make(map[metadata.TextureFormat]bool, len(formats))
		for _, f := range formats {
			b.formats[f] = true
		}
	}
}

func WithTrace(fn TraceFunc) Option {
	return func(b *Backend) {
		b.trace = fn
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// Backend is a CPU device. Command buffers are validated while recording
// and executed in submission order.
type Backend struct {
	mu sync.Mutex

	sampleCounts map[uint8]bool
	formats      map[metadata.TextureFormat]bool

	next    metadata.TargetHandle
	targets map[metadata.TargetHandle]*target
	// command buffers still referencing a handle
	pending map[metadata.TargetHandle]int
	// destroyed while pending, freed once the last reference goes away
	doomed map[metadata.TargetHandle]bool

	shaders    map[string]ResolveShader
	backbuffer *image.RGBA
	textures   map[string]*image.RGBA

	trace     TraceFunc
	logger    *log.Logger
	submitted uint64
}

var _ renderer.Backend = (*Backend)(nil)

func New(opts ...Option) *Backend {
	b := &Backend{
		targets:  make(map[metadata.TargetHandle]*target),
		pending:  make(map[metadata.TargetHandle]int),
		doomed:   make(map[metadata.TargetHandle]bool),
		shaders:  make(map[string]ResolveShader),
		textures: make(map[string]*image.RGBA),
	}
	WithSampleCounts(1, 2, 4, 8)(b)
	WithFormats(metadata.FormatRGBA8, metadata.FormatDefaultHDR, metadata.FormatDepth32)(b)
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = core.NewLogger("software")
	}
	for name, shader := range builtinResolveShaders {
		b.shaders[name] = shader
	}
	return b
}

func (b *Backend) Name() string {
	return "software"
}

func (b *Backend) CreateTarget(spec metadata.RenderTargetSpec) (metadata.TargetHandle, error) {
	if err := spec.Validate(); err != nil {
		return metadata.InvalidTargetHandle, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.sampleCounts[spec.Samples] {
		return metadata.InvalidTargetHandle, fmt.Errorf("%d samples per pixel not supported", spec.Samples)
	}
	if !b.formats[spec.Format] {
		return metadata.InvalidTargetHandle, fmt.Errorf("format %s not supported", spec.Format)
	}

	b.next++
	b.targets[b.next] = newTarget(spec)
	b.logger.Debug("target created", "handle", b.next, "spec", spec.String())
	return b.next, nil
}

func (b *Backend) DestroyTarget(handle metadata.TargetHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.targets[handle]; !ok || b.doomed[handle] {
		return fmt.Errorf("target %d does not exist", handle)
	}
	if b.pending[handle] > 0 {
		b.doomed[handle] = true
		return nil
	}
	delete(b.targets, handle)
	return nil
}

// LiveTargets counts targets whose memory is still held, including those
// waiting for a command buffer to let go of them.
func (b *Backend) LiveTargets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.targets)
}

func (b *Backend) NewCommandBuffer(label string) renderer.CommandBuffer {
	return &commandBuffer{backend: b, label: label}
}

// Submit executes a command buffer recorded on this backend.
func (b *Backend) Submit(rcb renderer.CommandBuffer) error {
	cb, ok := rcb.(*commandBuffer)
	if !ok || cb.backend != b {
		return fmt.Errorf("command buffer %q was not recorded on this backend", rcb.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cb.released || cb.submitted {
		return fmt.Errorf("command buffer %q already submitted or released", cb.label)
	}
	cb.submitted = true

	state := &executionState{globals: make(map[string]metadata.TargetHandle)}
	for _, cmd := range cb.commands {
		if b.trace != nil {
			b.trace(cb.label, cmd.String())
		}
		if err := b.execute(state, cmd); err != nil {
			return fmt.Errorf("execute %s in %q: %w", cmd.kind, cb.label, err)
		}
	}
	b.submitted++
	return nil
}

// live reports whether handle refers to a target that can still be used.
// The caller holds b.mu.
func (b *Backend) live(handle metadata.TargetHandle) (*target, bool) {
	t, ok := b.targets[handle]
	if !ok || b.doomed[handle] {
		return nil, false
	}
	return t, true
}

func (b *Backend) unref(handle metadata.TargetHandle) {
	b.pending[handle]--
	if b.pending[handle] > 0 {
		return
	}
	delete(b.pending, handle)
	if b.doomed[handle] {
		delete(b.doomed, handle)
		delete(b.targets, handle)
	}
}
