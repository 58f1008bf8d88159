package renderer

import (
	"iter"

	"github.com/spaghettifunk/resolvepipe/engine/math"
	"github.com/spaghettifunk/resolvepipe/engine/renderer/components"
	"github.com/spaghettifunk/resolvepipe/engine/scene"
)

// VisibleObject is a scene object that survived culling for one camera.
type VisibleObject struct {
	Object      *scene.Object
	WorldBounds math.Extents3D
	// Distance from the camera position to the centre of WorldBounds.
	Distance float32
	// Position of the object in the scene provider's order.
	SceneIndex int
}

// CullingParameters derives the six frustum planes of camera.
func CullingParameters(camera *components.Camera) (math.Frustum, error) {
	if camera.Projection == nil {
		if !math.IsFinite(camera.NearClip) || !math.IsFinite(camera.FarClip) ||
			camera.NearClip <= 0 || camera.FarClip <= camera.NearClip {
			return math.Frustum{}, &CullingError{Camera: camera.Name, Reason: "invalid near/far clip planes"}
		}
	}

	vp := camera.ViewProjection()
	if !vp.IsFinite() {
		return math.Frustum{}, &CullingError{Camera: camera.Name, Reason: "view-projection matrix is not finite"}
	}
	if vp.Determinant() == 0 {
		return math.Frustum{}, &CullingError{Camera: camera.Name, Reason: "view-projection matrix is singular"}
	}

	frustum, ok := math.FrustumFromMatrix(vp)
	if !ok {
		return math.Frustum{}, &CullingError{Camera: camera.Name, Reason: "degenerate frustum plane"}
	}
	return frustum, nil
}

// Cull returns the objects whose world bounds touch the camera frustum.
// The sequence is lazy and can be ranged over more than once. A camera
// without viewport area sees nothing.
func Cull(camera *components.Camera, objects []*scene.Object) (iter.Seq[*VisibleObject], error) {
	if !camera.Viewport.HasArea() {
		return func(func(*VisibleObject) bool) {}, nil
	}

	frustum, err := CullingParameters(camera)
	if err != nil {
		return nil, err
	}
	position := camera.GetPosition()

	return func(yield func(*VisibleObject) bool) {
		for i, o := range objects {
			bounds := o.WorldBounds()
			if !frustum.IntersectsAABB(bounds) {
				continue
			}
			visible := &VisibleObject{
				Object:      o,
				WorldBounds: bounds,
				Distance:    position.Distance(bounds.Center()),
				SceneIndex:  i,
			}
			if !yield(visible) {
				return
			}
		}
	}, nil
}
