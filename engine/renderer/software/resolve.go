package software

import (
	"fmt"
	"image/color"

	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/engine/math"
)

// ResolveShader reduces the samples of one pixel to a single colour.
// depths is nil when no depth texture is bound.
type ResolveShader func(colours []math.Vec4, depths []float32) math.Vec4

const (
	ShaderResolveBox          = "Resolve/Box"
	ShaderResolveNearestDepth = "Resolve/NearestDepth"
	ShaderResolveMaxColour    = "Resolve/MaxColour"
)

var builtinResolveShaders = map[string]ResolveShader{
	ShaderResolveBox:          resolveBox,
	ShaderResolveNearestDepth: resolveNearestDepth,
	ShaderResolveMaxColour:    resolveMaxColour,
}

// RegisterResolveShader makes a custom resolve shader available to
// resolve materials by name.
func (b *Backend) RegisterResolveShader(name string, shader ResolveShader) error {
	if name == "" || shader == nil {
		return fmt.Errorf("resolve shader needs a name and a function: %w", core.ErrInvalidConfig)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.shaders[name]; ok {
		return fmt.Errorf("resolve shader %q already registered", name)
	}
	b.shaders[name] = shader
	return nil
}

func resolveBox(colours []math.Vec4, _ []float32) math.Vec4 {
	sum := math.NewVec4Zero()
	for _, c := range colours {
		sum = sum.Add(c)
	}
	return sum.MulScalar(1 / float32(len(colours)))
}

// resolveNearestDepth keeps the sample closest to the camera.
func resolveNearestDepth(colours []math.Vec4, depths []float32) math.Vec4 {
	if len(depths) == 0 {
		return colours[0]
	}
	nearest := 0
	for i, d := range depths {
		if d < depths[nearest] {
			nearest = i
		}
	}
	return colours[nearest]
}

func resolveMaxColour(colours []math.Vec4, _ []float32) math.Vec4 {
	out := colours[0]
	for _, c := range colours[1:] {
		out.X = math.Max(out.X, c.X)
		out.Y = math.Max(out.Y, c.Y)
		out.Z = math.Max(out.Z, c.Z)
		out.W = math.Max(out.W, c.W)
	}
	return out
}

// toRGBA quantizes a resolved colour to 8 bits per channel. Blending over
// the transparent black clear leaves colours premultiplied, so channels are
// only clamped to alpha.
func toRGBA(c math.Vec4) color.RGBA {
	a := math.Clamp(c.W, 0, 1)
	channel := func(v float32) uint8 {
		return uint8(math.Clamp(math.Min(v, a), 0, 1)*255 + 0.5)
	}
	return color.RGBA{
		R: channel(c.X),
		G: channel(c.Y),
		B: channel(c.Z),
		A: uint8(a*255 + 0.5),
	}
}
