package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = float32(1e-4)

func assertMat4Equal(t *testing.T, expected, actual Mat4) {
	t.Helper()
	for i := range expected.Data {
		assert.InDelta(t, expected.Data[i], actual.Data[i], float64(tolerance), "element %d", i)
	}
}

func TestMat4Inverse(t *testing.T) {
	translation := NewMat4Translation(NewVec3(1, 2, 3))
	assertMat4Equal(t, NewMat4Translation(NewVec3(-1, -2, -3)), translation.Inverse())

	view := NewMat4LookAt(NewVec3(3, 4, 10), NewVec3Zero(), NewVec3Up())
	assertMat4Equal(t, NewMat4Identity(), view.Mul(view.Inverse()))

	proj := NewMat4Perspective(DegToRad(60), 16.0/9.0, 0.1, 100)
	assertMat4Equal(t, NewMat4Identity(), proj.Mul(proj.Inverse()))
}

func TestMat4Determinant(t *testing.T) {
	assert.InDelta(t, 1, NewMat4Identity().Determinant(), 1e-6)
	assert.InDelta(t, 24, NewMat4Scale(NewVec3(2, 3, 4)).Determinant(), 1e-5)
	assert.Zero(t, Mat4{}.Determinant())
	assert.NotZero(t, NewMat4Perspective(DegToRad(45), 1, 0.1, 1000).Determinant())
}

func TestMat4IsFinite(t *testing.T) {
	assert.True(t, NewMat4Identity().IsFinite())
	// A zero field of view divides by zero.
	assert.False(t, NewMat4Perspective(0, 1, 0.1, 100).IsFinite())
}

func TestLookAt(t *testing.T) {
	view := NewMat4LookAt(NewVec3(0, 0, 10), NewVec3Zero(), NewVec3Up())

	origin := NewVec3Zero().Transform(view)
	assert.True(t, origin.Compare(NewVec3(0, 0, -10), tolerance), "got %v", origin)

	// +X stays on the right side of the image.
	right := NewVec3(1, 0, 0).Transform(view)
	assert.InDelta(t, 1, right.X, float64(tolerance))
}

func TestTransformWorld(t *testing.T) {
	parent := TransformFromPosition(NewVec3(10, 0, 0))
	child := TransformFromPosition(NewVec3(0, 5, 0))
	child.Parent = parent

	p := NewVec3Zero().Transform(child.GetWorld())
	assert.True(t, p.Compare(NewVec3(10, 5, 0), tolerance), "got %v", p)

	var none *Transform
	assertMat4Equal(t, NewMat4Identity(), none.GetWorld())
}

func TestExtentsTransform(t *testing.T) {
	box := NewExtents3DFromCenter(NewVec3Zero(), NewVec3(1, 1, 1))
	moved := box.Transform(NewMat4Scale(NewVec3(2, 2, 2)).Mul(NewMat4Translation(NewVec3(0, 0, -5))))

	assert.True(t, moved.Min.Compare(NewVec3(-2, -2, -7), tolerance), "got %v", moved.Min)
	assert.True(t, moved.Max.Compare(NewVec3(2, 2, -3), tolerance), "got %v", moved.Max)
	assert.True(t, moved.Center().Compare(NewVec3(0, 0, -5), tolerance))
}

func TestFrustumFromPerspective(t *testing.T) {
	proj := NewMat4Perspective(DegToRad(90), 1, 0.1, 100)
	frustum, ok := FrustumFromMatrix(NewMat4Identity().Mul(proj))
	require.True(t, ok)

	assert.True(t, frustum.ContainsPoint(NewVec3(0, 0, -10)))
	assert.False(t, frustum.ContainsPoint(NewVec3(0, 0, 10)), "behind the camera")
	assert.False(t, frustum.ContainsPoint(NewVec3(0, 0, -0.05)), "in front of the near plane")
	assert.False(t, frustum.ContainsPoint(NewVec3(0, 0, -200)), "beyond the far plane")
	assert.False(t, frustum.ContainsPoint(NewVec3(50, 0, -10)), "outside the right plane")

	// Straddles the right plane: x == -z at the edge for a 90 degree fov.
	straddling := NewExtents3D(NewVec3(9, -1, -11), NewVec3(12, 1, -9))
	assert.True(t, frustum.IntersectsAABB(straddling))

	outside := NewExtents3D(NewVec3(30, -1, -11), NewVec3(32, 1, -9))
	assert.False(t, frustum.IntersectsAABB(outside))

	enclosing := NewExtents3D(NewVec3(-500, -500, -500), NewVec3(500, 500, 500))
	assert.True(t, frustum.IntersectsAABB(enclosing))
}

func TestFrustumDegenerate(t *testing.T) {
	_, ok := FrustumFromMatrix(Mat4{})
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 4, Clamp(9, 1, 4))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.Equal(t, uint8(2), Clamp(uint8(0), 2, 8))
}
