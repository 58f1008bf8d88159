package software

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

type commandKind int

const (
	cmdSetRenderTarget commandKind = iota
	cmdClear
	cmdDrawRenderers
	cmdDrawSkybox
	cmdSetGlobalTexture
	cmdBlit
)

func (k commandKind) String() string {
	switch k {
	case cmdSetRenderTarget:
		return "SetRenderTarget"
	case cmdClear:
		return "ClearRenderTarget"
	case cmdDrawRenderers:
		return "DrawRenderers"
	case cmdDrawSkybox:
		return "DrawSkybox"
	case cmdSetGlobalTexture:
		return "SetGlobalTexture"
	case cmdBlit:
		return "Blit"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

type command struct {
	kind commandKind

	color, depth metadata.TargetHandle
	flags        metadata.ClearFlag
	clearColour  math.Vec4
	clearDepth   float32

	pass    string
	view    *renderer.ViewPacket
	objects []*renderer.VisibleObject

	name   string
	handle metadata.TargetHandle

	dst      metadata.Destination
	viewport components.Viewport
	material *metadata.ResolveMaterial
	shader   ResolveShader
}

func (c command) String() string {
	switch c.kind {
	case cmdSetRenderTarget:
		return fmt.Sprintf("%s color=%d depth=%d", c.kind, c.color, c.depth)
	case cmdDrawRenderers:
		names := make([]string, 0, len(c.objects))
		for _, o := range c.objects {
			names = append(names, o.Object.Name)
		}
		return fmt.Sprintf("%s %s [%s]", c.kind, c.pass, strings.Join(names, " "))
	case cmdSetGlobalTexture:
		return fmt.Sprintf("%s %s=%d", c.kind, c.name, c.handle)
	case cmdBlit:
		return fmt.Sprintf("%s %d -> %s%s via %s", c.kind, c.handle, c.dst, c.viewport, c.material.ShaderName)
	default:
		return c.kind.String()
	}
}

// commandBuffer records commands for the software backend.
type commandBuffer struct {
	backend   *Backend
	label     string
	commands  []command
	refs      []metadata.TargetHandle
	bound     bool
	released  bool
	submitted bool
}

var _ renderer.CommandBuffer = (*commandBuffer)(nil)

func (cb *commandBuffer) Label() string {
	return cb.label
}

// ref pins handle until the buffer is released. The caller holds the
// backend lock.
func (cb *commandBuffer) ref(handle metadata.TargetHandle) {
	cb.backend.pending[handle]++
	cb.refs = append(cb.refs, handle)
}

func (cb *commandBuffer) writable() error {
	if cb.released || cb.submitted {
		return fmt.Errorf("command buffer %q is closed", cb.label)
	}
	return nil
}

func (cb *commandBuffer) SetRenderTarget(color, depth metadata.TargetHandle) error {
	b := cb.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := cb.writable(); err != nil {
		return err
	}
	ct, ok := b.live(color)
	if !ok {
		return fmt.Errorf("colour target %d does not exist", color)
	}
	dt, ok := b.live(depth)
	if !ok {
		return fmt.Errorf("depth target %d does not exist", depth)
	}
	if ct.spec.Format.IsDepth() || !dt.spec.Format.IsDepth() {
		return fmt.Errorf("targets %s/%s are not a colour/depth pair", ct.spec.Format, dt.spec.Format)
	}
	if ct.spec.Width != dt.spec.Width || ct.spec.Height != dt.spec.Height || ct.spec.Samples != dt.spec.Samples {
		return fmt.Errorf("colour %s and depth %s do not match", ct.spec, dt.spec)
	}

	cb.ref(color)
	cb.ref(depth)
	cb.bound = true
	cb.commands = append(cb.commands, command{kind: cmdSetRenderTarget, color: color, depth: depth})
	return nil
}

func (cb *commandBuffer) ClearRenderTarget(flags metadata.ClearFlag, colour math.Vec4, depth float32) error {
	if err := cb.writable(); err != nil {
		return err
	}
	if !cb.bound {
		return fmt.Errorf("clear without a bound render target")
	}
	cb.commands = append(cb.commands, command{kind: cmdClear, flags: flags, clearColour: colour, clearDepth: depth})
	return nil
}

func (cb *commandBuffer) DrawRenderers(pass string, view *renderer.ViewPacket, objects []*renderer.VisibleObject) error {
	if err := cb.writable(); err != nil {
		return err
	}
	if !cb.bound {
		return fmt.Errorf("draw without a bound render target")
	}
	if view == nil {
		return fmt.Errorf("draw without a view")
	}
	for _, o := range objects {
		if !o.Object.Material.HasPass(pass) {
			return fmt.Errorf("material %q of %q has no pass %q: %w",
				o.Object.Material.Name, o.Object.Name, pass, core.ErrMissingShaderPass)
		}
	}
	cb.commands = append(cb.commands, command{
		kind:    cmdDrawRenderers,
		pass:    pass,
		view:    view,
		objects: append([]*renderer.VisibleObject(nil), objects...),
	})
	return nil
}

func (cb *commandBuffer) DrawSkybox(view *renderer.ViewPacket) error {
	if err := cb.writable(); err != nil {
		return err
	}
	if !cb.bound {
		return fmt.Errorf("skybox without a bound render target")
	}
	if view == nil {
		return fmt.Errorf("skybox without a view")
	}
	cb.commands = append(cb.commands, command{kind: cmdDrawSkybox, view: view})
	return nil
}

func (cb *commandBuffer) SetGlobalTexture(name string, handle metadata.TargetHandle) error {
	b := cb.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := cb.writable(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("global texture without a name")
	}
	if _, ok := b.live(handle); !ok {
		return fmt.Errorf("global texture %s: target %d does not exist", name, handle)
	}
	cb.ref(handle)
	cb.commands = append(cb.commands, command{kind: cmdSetGlobalTexture, name: name, handle: handle})
	return nil
}

func (cb *commandBuffer) Blit(src metadata.TargetHandle, dst metadata.Destination, viewport components.Viewport, material *metadata.ResolveMaterial) error {
	b := cb.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := cb.writable(); err != nil {
		return err
	}
	if material == nil {
		return fmt.Errorf("blit without a material")
	}
	shader, ok := b.shaders[material.ShaderName]
	if !ok {
		return fmt.Errorf("resolve shader %q: %w", material.ShaderName, core.ErrUnknownShader)
	}
	st, ok := b.live(src)
	if !ok {
		return fmt.Errorf("blit source %d does not exist", src)
	}
	if st.spec.Format.IsDepth() {
		return fmt.Errorf("blit source %d is a depth target", src)
	}
	if dst.Width == 0 || dst.Height == 0 {
		return fmt.Errorf("blit destination %s has no area", dst)
	}
	if !viewport.HasArea() || !viewport.Within(dst.Width, dst.Height) {
		return fmt.Errorf("blit viewport %s does not fit %s", viewport, dst)
	}
	cb.ref(src)
	cb.commands = append(cb.commands, command{kind: cmdBlit, handle: src, dst: dst, viewport: viewport, material: material, shader: shader})
	return nil
}

// Release lets go of every target the buffer referenced. It is safe to
// call more than once.
func (cb *commandBuffer) Release() {
	b := cb.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb.released {
		return
	}
	cb.released = true
	for _, h := range cb.refs {
		b.unref(h)
	}
	cb.refs = nil
	cb.commands = nil
}
