package render

import (
	"github.com/taigrr/pbrview/pkg/math3d"
)

// Plane is Normal·p + D = 0. Points with a positive distance are on the
// normal's side.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// Normalize scales the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum is the six clip planes of a projection, normals pointing inward.
type Frustum struct {
	Planes [6]Plane
}

// Plane indices, in the order NewFrustumFromMatrix fills them.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// NewFrustumFromMatrix extracts frustum planes from a projection matrix using
// the Gribb/Hartmann method. Planes come out in the space the matrix maps
// from, so passing a full model-view-projection gives object-space planes
// that can be tested against a mesh's local bounds.
func NewFrustumFromMatrix(m math3d.Mat4) Frustum {
	// Column-major: row i is m[i], m[i+4], m[i+8], m[i+12]
	row := func(i int) [4]float64 {
		return [4]float64{m[i], m[i+4], m[i+8], m[i+12]}
	}
	w := row(3)

	var f Frustum
	for axis := range 3 {
		r := row(axis)
		for side := range 2 {
			sign := 1.0 - 2*float64(side) // w+r, then w-r
			p := Plane{
				Normal: math3d.V3(w[0]+sign*r[0], w[1]+sign*r[1], w[2]+sign*r[2]),
				D:      w[3] + sign*r[3],
			}
			p.Normalize()
			f.Planes[axis*2+side] = p
		}
	}
	return f
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max math3d.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// PointAABB returns the empty box at p, ready to be grown with Extend.
func PointAABB(p math3d.Vec3) AABB {
	return AABB{Min: p, Max: p}
}

// Extend grows the box to contain p.
func (b AABB) Extend(p math3d.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Center returns the middle of the box.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns half the diagonal, the radius of the sphere through the
// box's corners.
func (b AABB) Radius() float64 {
	return b.Max.Sub(b.Min).Len() / 2
}

// IntersectAABB reports whether any part of box may be inside the frustum.
// Only the corner furthest along each plane normal is tested, so boxes near
// a frustum corner can pass when they are in fact outside.
func (f Frustum) IntersectAABB(box AABB) bool {
	for _, plane := range f.Planes {
		far := math3d.V3(
			pick(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			pick(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			pick(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if plane.DistanceToPoint(far) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
