package renderer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

var errInjected = errors.New("injected failure")

type fakeCommand struct {
	Name     string
	Objects  []string
	Slot     string
	Dst      metadata.Destination
	Viewport components.Viewport
}

type fakeCommandBuffer struct {
	backend  *fakeBackend
	label    string
	commands []fakeCommand
	released bool
}

// fakeBackend records command buffers and fails on demand.
type fakeBackend struct {
	mu         sync.Mutex
	next       metadata.TargetHandle
	live       map[metadata.TargetHandle]metadata.RenderTargetSpec
	maxSamples uint8
	created    int
	destroyed  int
	submitted  []*fakeCommandBuffer

	// failDraw is consulted on every DrawRenderers call.
	failDraw   func(objects []*VisibleObject) error
	failSubmit error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		live:       make(map[metadata.TargetHandle]metadata.RenderTargetSpec),
		maxSamples: 8,
	}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) CreateTarget(spec metadata.RenderTargetSpec) (metadata.TargetHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if spec.Samples > b.maxSamples {
		return metadata.InvalidTargetHandle, fmt.Errorf("%d samples unsupported", spec.Samples)
	}
	b.next++
	b.live[b.next] = spec
	b.created++
	return b.next, nil
}

func (b *fakeBackend) DestroyTarget(handle metadata.TargetHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live[handle]; !ok {
		return fmt.Errorf("unknown target %d", handle)
	}
	delete(b.live, handle)
	b.destroyed++
	return nil
}

func (b *fakeBackend) NewCommandBuffer(label string) CommandBuffer {
	return &fakeCommandBuffer{backend: b, label: label}
}

func (b *fakeBackend) Submit(cb CommandBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSubmit != nil {
		return b.failSubmit
	}
	b.submitted = append(b.submitted, cb.(*fakeCommandBuffer))
	return nil
}

func (b *fakeBackend) isLive(handle metadata.TargetHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[handle]
	return ok
}

func (b *fakeBackend) liveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

func (cb *fakeCommandBuffer) Label() string { return cb.label }

func (cb *fakeCommandBuffer) SetRenderTarget(color, depth metadata.TargetHandle) error {
	if !cb.backend.isLive(color) || !cb.backend.isLive(depth) {
		return fmt.Errorf("set render target %d/%d: not live", color, depth)
	}
	cb.commands = append(cb.commands, fakeCommand{Name: "SetRenderTarget"})
	return nil
}

func (cb *fakeCommandBuffer) ClearRenderTarget(flags metadata.ClearFlag, colour math.Vec4, depth float32) error {
	cb.commands = append(cb.commands, fakeCommand{Name: "Clear"})
	return nil
}

func (cb *fakeCommandBuffer) DrawRenderers(pass string, view *ViewPacket, objects []*VisibleObject) error {
	if f := cb.backend.failDraw; f != nil {
		if err := f(objects); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		if !o.Object.Material.HasPass(pass) {
			return fmt.Errorf("%s: %w", o.Object.Name, core.ErrMissingShaderPass)
		}
		names = append(names, o.Object.Name)
	}
	cb.commands = append(cb.commands, fakeCommand{Name: "DrawRenderers", Objects: names})
	return nil
}

func (cb *fakeCommandBuffer) DrawSkybox(view *ViewPacket) error {
	cb.commands = append(cb.commands, fakeCommand{Name: "DrawSkybox"})
	return nil
}

func (cb *fakeCommandBuffer) SetGlobalTexture(name string, handle metadata.TargetHandle) error {
	cb.commands = append(cb.commands, fakeCommand{Name: "SetGlobalTexture", Slot: name})
	return nil
}

func (cb *fakeCommandBuffer) Blit(src metadata.TargetHandle, dst metadata.Destination, viewport components.Viewport, material *metadata.ResolveMaterial) error {
	cb.commands = append(cb.commands, fakeCommand{Name: "Blit", Dst: dst, Viewport: viewport})
	return nil
}

func (cb *fakeCommandBuffer) Release() {
	cb.released = true
}

func (cb *fakeCommandBuffer) names() []string {
	out := make([]string, 0, len(cb.commands))
	for _, c := range cb.commands {
		out = append(out, c.Name)
	}
	return out
}

var (
	opaqueMaterial = metadata.NewMaterial(1, "opaque", math.NewVec4(1, 0, 0, 1), metadata.RenderQueueGeometry)
	glassMaterial  = metadata.NewMaterial(2, "glass", math.NewVec4(0, 0, 1, 0.5), metadata.RenderQueueTransparent)
)

func unitObject(name string, position math.Vec3, material *metadata.Material) *scene.Object {
	return scene.NewObject(name, math.TransformFromPosition(position),
		math.NewExtents3DFromCenter(math.NewVec3Zero(), math.NewVec3One()), material)
}

// testScene holds two opaque cubes A (near) and B (far) and a transparent T
// in front of both, as seen from testCamera.
func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	s := scene.New("test")
	if err := s.Add(
		unitObject("B", math.NewVec3(0, 0, -5), opaqueMaterial),
		unitObject("T", math.NewVec3(0, 0, 2), glassMaterial),
		unitObject("A", math.NewVec3(0, 0, 0), opaqueMaterial),
	); err != nil {
		t.Fatal(err)
	}
	return s
}

func testCamera(name string) *components.Camera {
	c := components.NewCamera(name, metadata.RenderTextureDestination(name+"-rt", 64, 64))
	c.SetPosition(math.NewVec3(0, 0, 10))
	return c
}
