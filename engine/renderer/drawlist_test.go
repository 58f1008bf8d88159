package renderer

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/metadata"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

func visible(name string, material *metadata.Material, distance float32, index int) *VisibleObject {
	return &VisibleObject{
		Object:     scene.NewObject(name, nil, math.Extents3D{}, material),
		Distance:   distance,
		SceneIndex: index,
	}
}

func drawNames(objects []*VisibleObject) []string {
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Object.Name)
	}
	return names
}

func TestBuildDrawListSplitsByRenderQueue(t *testing.T) {
	cutout := metadata.NewMaterial(3, "cutout", math.NewVec4One(), metadata.RenderQueueAlphaTest)
	overlay := metadata.NewMaterial(4, "overlay", math.NewVec4One(), metadata.RenderQueueGeometryLast+1)

	dl := BuildDrawList(slices.Values([]*VisibleObject{
		visible("glass", glassMaterial, 5, 0),
		visible("wall", opaqueMaterial, 5, 1),
		visible("fence", cutout, 1, 2),
		visible("hud", overlay, 1, 3),
	}))

	assert.Equal(t, []string{"wall", "fence"}, drawNames(dl.Opaque))
	assert.Equal(t, []string{"glass", "hud"}, drawNames(dl.Transparent))
	assert.Equal(t, 4, dl.Len())
}

func TestBuildDrawListOpaqueOrder(t *testing.T) {
	other := metadata.NewMaterial(9, "other", math.NewVec4One(), metadata.RenderQueueGeometry)
	otherShader := metadata.NewMaterial(0, "other-shader", math.NewVec4One(), metadata.RenderQueueGeometry)
	otherShader.ShaderID = 7

	dl := BuildDrawList(slices.Values([]*VisibleObject{
		visible("shader7", otherShader, 1, 0),
		visible("mat9-near", other, 2, 1),
		visible("mat1-far", opaqueMaterial, 30, 2),
		visible("mat1-near", opaqueMaterial, 3, 3),
		visible("mat1-near-twin", opaqueMaterial, 3, 4),
	}))

	assert.Equal(t, []string{
		"mat1-near", "mat1-near-twin", "mat1-far",
		"mat9-near",
		"shader7",
	}, drawNames(dl.Opaque))
}

func TestBuildDrawListTransparentBackToFront(t *testing.T) {
	objects := []*VisibleObject{
		visible("near", glassMaterial, 1, 0),
		visible("far", glassMaterial, 20, 1),
		visible("tie-b", glassMaterial, 10, 3),
		visible("tie-a", glassMaterial, 10, 2),
		visible("mid", glassMaterial, 5, 4),
	}
	want := []string{"far", "tie-a", "tie-b", "mid", "near"}

	dl := BuildDrawList(slices.Values(objects))
	assert.Equal(t, want, drawNames(dl.Transparent))

	reversed := slices.Clone(objects)
	slices.Reverse(reversed)
	dl = BuildDrawList(slices.Values(reversed))
	assert.Equal(t, want, drawNames(dl.Transparent))
}

func TestBuildDrawListEmpty(t *testing.T) {
	dl := BuildDrawList(slices.Values[[]*VisibleObject](nil))
	assert.Empty(t, dl.Opaque)
	assert.Empty(t, dl.Transparent)
	assert.Zero(t, dl.Len())
}
