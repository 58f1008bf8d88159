package software

import (
	"fmt"
	"image"

	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

type executionState struct {
	colour  *target
	depth   *target
	globals map[string]metadata.TargetHandle
}

// execute runs one command. The caller holds b.mu.
func (b *Backend) execute(state *executionState, cmd command) error {
	switch cmd.kind {
	case cmdSetRenderTarget:
		state.colour = b.targets[cmd.color]
		state.depth = b.targets[cmd.depth]

	case cmdClear:
		if cmd.flags&metadata.ClearFlagColor != 0 {
			state.colour.clearColour(cmd.clearColour)
		}
		if cmd.flags&metadata.ClearFlagDepth != 0 {
			state.depth.clearDepth(cmd.clearDepth)
		}

	case cmdDrawRenderers:
		for _, obj := range cmd.objects {
			r, ok := project(cmd.view, obj)
			if !ok {
				continue
			}
			m := obj.Object.Material
			if m.Transparent() {
				drawTransparent(state.colour, state.depth, r, m.DiffuseColour)
			} else {
				drawOpaque(state.colour, state.depth, r, m.DiffuseColour)
			}
		}

	case cmdDrawSkybox:
		drawSky(state.colour, state.depth, cmd.view.SkyboxColour)

	case cmdSetGlobalTexture:
		state.globals[cmd.name] = cmd.handle

	case cmdBlit:
		src := b.targets[cmd.handle]
		var depth *target
		if h, ok := state.globals[cmd.material.DepthSlot]; ok {
			depth = b.targets[h]
		}
		if depth != nil && (depth.spec.Width != src.spec.Width || depth.spec.Height != src.spec.Height || depth.spec.Samples != src.spec.Samples) {
			return fmt.Errorf("%s %s does not match source %s", cmd.material.DepthSlot, depth.spec, src.spec)
		}
		vp := cmd.viewport
		rect := image.Rect(int(vp.X), int(vp.Y), int(vp.X+vp.Width), int(vp.Y+vp.Height))
		resolveInto(b.destination(cmd.dst), rect, src, depth, cmd.shader)

	default:
		return fmt.Errorf("unknown command %d", int(cmd.kind))
	}
	return nil
}

// destination returns the image backing dst, (re)allocated to its extent.
// The caller holds b.mu.
func (b *Backend) destination(dst metadata.Destination) *image.RGBA {
	rect := image.Rect(0, 0, int(dst.Width), int(dst.Height))
	if dst.Kind == metadata.DestinationBackbuffer {
		if b.backbuffer == nil || b.backbuffer.Rect != rect {
			b.backbuffer = image.NewRGBA(rect)
		}
		return b.backbuffer
	}
	img, ok := b.textures[dst.Name]
	if !ok || img.Rect != rect {
		img = image.NewRGBA(rect)
		b.textures[dst.Name] = img
	}
	return img
}

// resolveInto runs shader over every pixel of rect in out, sampling src
// with nearest filtering when the extents differ. Pixels outside rect are
// left untouched.
func resolveInto(out *image.RGBA, rect image.Rectangle, src, depth *target, shader ResolveShader) {
	samples := int(src.spec.Samples)
	colours := make([]math.Vec4, samples)
	var depths []float32
	if depth != nil {
		depths = make([]float32, samples)
	}

	rect = rect.Intersect(out.Rect)
	w, h := rect.Dx(), rect.Dy()
	sw, sh := int(src.spec.Width), int(src.spec.Height)
	for y := 0; y < h; y++ {
		sy := y * sh / h
		for x := 0; x < w; x++ {
			sx := x * sw / w
			src.pixel(sx, sy, colours)
			if depth != nil {
				depth.pixelDepth(sx, sy, depths)
			}
			out.SetRGBA(rect.Min.X+x, rect.Min.Y+y, toRGBA(shader(colours, depths)))
		}
	}
}
