package software

import (
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer"
)

// farDepth is the cleared depth value; the sky is drawn where depth still
// holds it.
const farDepth float32 = 1

// screenRect is the screen space footprint of an object in pixels.
type screenRect struct {
	minX, minY, maxX, maxY float32
	depth                  float32
}

// project returns the rectangle enclosing the projected world bounds of
// an object, in pixels of the camera's render target. The target covers the
// viewport only, so the viewport origin is applied by the resolve blit.
// ok is false when the object is entirely behind the camera.
func project(view *renderer.ViewPacket, obj *renderer.VisibleObject) (screenRect, bool) {
	vp := view.Viewport
	full := screenRect{maxX: float32(vp.Width), maxY: float32(vp.Height)}

	r := screenRect{minX: math.K_INFINITY, minY: math.K_INFINITY, maxX: -math.K_INFINITY, maxY: -math.K_INFINITY, depth: farDepth}
	inFront, behind := 0, 0
	for _, corner := range obj.WorldBounds.Corners() {
		clip := corner.ToVec4(1).Transform(view.ViewProjection)
		if clip.W <= math.K_FLOAT_EPSILON {
			behind++
			continue
		}
		inFront++
		ndc := math.NewVec3(clip.X/clip.W, clip.Y/clip.W, clip.Z/clip.W)
		x := (ndc.X*0.5 + 0.5) * float32(vp.Width)
		// image rows grow downwards
		y := (0.5 - ndc.Y*0.5) * float32(vp.Height)
		r.minX = math.Min(r.minX, x)
		r.maxX = math.Max(r.maxX, x)
		r.minY = math.Min(r.minY, y)
		r.maxY = math.Max(r.maxY, y)
		r.depth = math.Min(r.depth, ndc.Z*0.5+0.5)
	}
	if inFront == 0 {
		return screenRect{}, false
	}
	if behind > 0 {
		// crosses the camera plane, the footprint is unbounded
		full.depth = 0
		return full, true
	}

	r.minX = math.Clamp(r.minX, full.minX, full.maxX)
	r.maxX = math.Clamp(r.maxX, full.minX, full.maxX)
	r.minY = math.Clamp(r.minY, full.minY, full.maxY)
	r.maxY = math.Clamp(r.maxY, full.minY, full.maxY)
	r.depth = math.Clamp(r.depth, 0, farDepth)
	return r, r.maxX > r.minX && r.maxY > r.minY
}

// forEachCoveredSample calls fn for every sample whose position lies inside r.
func forEachCoveredSample(colour *target, r screenRect, fn func(index int)) {
	samples := samplePatterns[colour.spec.Samples]
	x0 := int(math.Max(r.minX-1, 0))
	y0 := int(math.Max(r.minY-1, 0))
	x1 := math.Min(int(r.maxX)+1, int(colour.spec.Width)-1)
	y1 := math.Min(int(r.maxY)+1, int(colour.spec.Height)-1)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			for s, pos := range samples {
				sx, sy := float32(x)+pos.X, float32(y)+pos.Y
				if sx < r.minX || sx >= r.maxX || sy < r.minY || sy >= r.maxY {
					continue
				}
				fn(colour.index(x, y, s))
			}
		}
	}
}

// drawOpaque writes colour and depth for samples passing the depth test.
func drawOpaque(colour, depth *target, r screenRect, c math.Vec4) {
	forEachCoveredSample(colour, r, func(i int) {
		if r.depth < depth.depth[i] {
			colour.colour[i] = c
			depth.depth[i] = r.depth
		}
	})
}

// drawTransparent blends source over destination and leaves depth alone.
func drawTransparent(colour, depth *target, r screenRect, c math.Vec4) {
	a := math.Clamp(c.W, 0, 1)
	forEachCoveredSample(colour, r, func(i int) {
		if r.depth >= depth.depth[i] {
			return
		}
		dst := colour.colour[i]
		colour.colour[i] = math.Vec4{
			X: c.X*a + dst.X*(1-a),
			Y: c.Y*a + dst.Y*(1-a),
			Z: c.Z*a + dst.Z*(1-a),
			W: a + dst.W*(1-a),
		}
	})
}

func drawSky(colour, depth *target, sky math.Vec4) {
	for i := range colour.colour {
		if depth.depth[i] >= farDepth {
			colour.colour[i] = sky
		}
	}
}
