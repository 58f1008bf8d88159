package software

import (
	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
)

// Sample positions inside a pixel, in pixel units from the top left corner.
// These are the standard multisample patterns.
var samplePatterns = map[uint8][]math.Vec3{
	1: pattern([2]float32{0, 0}),
	2: pattern([2]float32{4, 4}, [2]float32{-4, -4}),
	4: pattern([2]float32{-2, -6}, [2]float32{6, -2}, [2]float32{-6, 2}, [2]float32{2, 6}),
	8: pattern(
		[2]float32{1, -3}, [2]float32{-1, 3}, [2]float32{5, 1}, [2]float32{-3, -5},
		[2]float32{-5, 5}, [2]float32{-7, -1}, [2]float32{3, 7}, [2]float32{7, -7},
	),
}

// pattern converts offsets in 1/16th pixel from the pixel centre.
func pattern(offsets ...[2]float32) []math.Vec3 {
	out := make([]math.Vec3, len(offsets))
	for i, o := range offsets {
		out[i] = math.NewVec3(0.5+o[0]/16, 0.5+o[1]/16, 0)
	}
	return out
}

// target is the storage of a render target. Colour targets use colour,
// depth targets use depth. Both hold Samples values per pixel.
type target struct {
	spec   metadata.RenderTargetSpec
	colour []math.Vec4
	depth  []float32
}

func newTarget(spec metadata.RenderTargetSpec) *target {
	n := int(spec.Width) * int(spec.Height) * int(spec.Samples)
	t := &target{spec: spec}
	if spec.Format.IsDepth() {
		t.depth = make([]float32, n)
	} else {
		t.colour = make([]math.Vec4, n)
	}
	return t
}

func (t *target) index(x, y, sample int) int {
	return (y*int(t.spec.Width)+x)*int(t.spec.Samples) + sample
}

func (t *target) clearColour(c math.Vec4) {
	for i := range t.colour {
		t.colour[i] = c
	}
}

func (t *target) clearDepth(d float32) {
	for i := range t.depth {
		t.depth[i] = d
	}
}

// pixel copies the samples of one pixel into colours and depths.
func (t *target) pixel(x, y int, colours []math.Vec4) {
	base := t.index(x, y, 0)
	copy(colours, t.colour[base:base+int(t.spec.Samples)])
}

func (t *target) pixelDepth(x, y int, depths []float32) {
	base := t.index(x, y, 0)
	copy(depths, t.depth[base:base+int(t.spec.Samples)])
}
