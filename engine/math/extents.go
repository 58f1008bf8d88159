package math

func NewExtents3D(min, max Vec3) Extents3D {
	return Extents3D{Min: min, Max: max}
}

// NewExtents3DFromCenter builds a box from its centre and half size.
func NewExtents3DFromCenter(center, halfSize Vec3) Extents3D {
	return Extents3D{Min: center.Sub(halfSize), Max: center.Add(halfSize)}
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

func (e Extents3D) Size() Vec3 {
	return e.Max.Sub(e.Min)
}

// Corners returns the eight corners of the box.
func (e Extents3D) Corners() [8]Vec3 {
	return [8]Vec3{
		{e.Min.X, e.Min.Y, e.Min.Z},
		{e.Max.X, e.Min.Y, e.Min.Z},
		{e.Min.X, e.Max.Y, e.Min.Z},
		{e.Max.X, e.Max.Y, e.Min.Z},
		{e.Min.X, e.Min.Y, e.Max.Z},
		{e.Max.X, e.Min.Y, e.Max.Z},
		{e.Min.X, e.Max.Y, e.Max.Z},
		{e.Max.X, e.Max.Y, e.Max.Z},
	}
}

// Transform returns the axis aligned box enclosing e transformed by m.
func (e Extents3D) Transform(m Mat4) Extents3D {
	corners := e.Corners()
	first := corners[0].Transform(m)
	out := Extents3D{Min: first, Max: first}
	for _, c := range corners[1:] {
		p := c.Transform(m)
		out.Min = Vec3{Min(out.Min.X, p.X), Min(out.Min.Y, p.Y), Min(out.Min.Z, p.Z)}
		out.Max = Vec3{Max(out.Max.X, p.X), Max(out.Max.Y, p.Y), Max(out.Max.Z, p.Z)}
	}
	return out
}
