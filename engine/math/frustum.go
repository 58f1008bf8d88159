package math

// NewPlane builds a normalized plane from the coefficients a*x + b*y + c*z + d.
// A zero length normal is reported with ok set to false.
func NewPlane(a, b, c, d float32) (Plane, bool) {
	n := Vec3{a, b, c}
	l := n.Length()
	if l <= K_FLOAT_EPSILON || !IsFinite(l) {
		return Plane{}, false
	}
	return Plane{Normal: n.MulScalar(1 / l), Distance: d / l}, true
}

// SignedDistance is positive on the inner side of the plane.
func (p Plane) SignedDistance(point Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

// FrustumFromMatrix extracts the six clip planes from a view-projection
// matrix. Clip depth is expected in [-w, w]. ok is false when any plane
// degenerates.
func FrustumFromMatrix(vp Mat4) (Frustum, bool) {
	d := vp.Data
	col := func(i int) Vec4 {
		return Vec4{d[i], d[4+i], d[8+i], d[12+i]}
	}
	c0, c1, c2, c3 := col(0), col(1), col(2), col(3)

	coefficients := [6]Vec4{
		FrustumLeft:   c3.Add(c0),
		FrustumRight:  c3.Sub(c0),
		FrustumBottom: c3.Add(c1),
		FrustumTop:    c3.Sub(c1),
		FrustumNear:   c3.Add(c2),
		FrustumFar:    c3.Sub(c2),
	}

	f := Frustum{}
	for i, c := range coefficients {
		p, ok := NewPlane(c.X, c.Y, c.Z, c.W)
		if !ok {
			return Frustum{}, false
		}
		f.Planes[i] = p
	}
	return f, true
}

// IntersectsAABB reports whether the box is inside or intersects every
// plane of the frustum.
func (f Frustum) IntersectsAABB(box Extents3D) bool {
	for _, p := range f.Planes {
		// The corner furthest along the plane normal.
		positive := box.Min
		if p.Normal.X >= 0 {
			positive.X = box.Max.X
		}
		if p.Normal.Y >= 0 {
			positive.Y = box.Max.Y
		}
		if p.Normal.Z >= 0 {
			positive.Z = box.Max.Z
		}
		if p.SignedDistance(positive) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether point lies inside all six planes.
func (f Frustum) ContainsPoint(point Vec3) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(point) < 0 {
			return false
		}
	}
	return true
}
