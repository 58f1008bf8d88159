package renderer

import (
	"cmp"
	"iter"
	"slices"
)

// DrawList holds the visible objects of a camera split by pass, each in
// submission order.
type DrawList struct {
	Opaque      []*VisibleObject
	Transparent []*VisibleObject
}

func (dl *DrawList) Len() int {
	return len(dl.Opaque) + len(dl.Transparent)
}

// BuildDrawList buckets visible objects by their material render queue and
// sorts each bucket. Opaque objects are grouped by render queue, shader and
// material and drawn front to back inside a group. Transparent objects are
// drawn strictly back to front. Remaining ties fall back to the scene order
// so the result does not depend on the order of visible.
func BuildDrawList(visible iter.Seq[*VisibleObject]) *DrawList {
	dl := &DrawList{}
	for v := range visible {
		if v.Object.Material.Transparent() {
			dl.Transparent = append(dl.Transparent, v)
		} else {
			dl.Opaque = append(dl.Opaque, v)
		}
	}

	slices.SortStableFunc(dl.Opaque, compareOpaque)
	slices.SortStableFunc(dl.Transparent, compareTransparent)
	return dl
}

func compareOpaque(a, b *VisibleObject) int {
	ma, mb := a.Object.Material, b.Object.Material
	return cmp.Or(
		cmp.Compare(ma.RenderQueue, mb.RenderQueue),
		cmp.Compare(ma.ShaderID, mb.ShaderID),
		cmp.Compare(ma.ID, mb.ID),
		cmp.Compare(a.Distance, b.Distance),
		cmp.Compare(a.SceneIndex, b.SceneIndex),
	)
}

func compareTransparent(a, b *VisibleObject) int {
	return cmp.Or(
		cmp.Compare(b.Distance, a.Distance),
		cmp.Compare(a.SceneIndex, b.SceneIndex),
	)
}
