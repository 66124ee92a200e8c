package render

import (
	"math"
	"testing"

	"github.com/taigrr/pbrview/pkg/math3d"
)

// testFrustum looks down -Z from the origin.
func testFrustum(near, far float64) Frustum {
	return NewFrustumFromMatrix(math3d.Perspective(math.Pi/3, 16.0/9.0, near, far))
}

func TestPlaneDistanceToPoint(t *testing.T) {
	plane := Plane{Normal: math3d.V3(0, 0, 1), D: -2} // z = 2

	tests := []struct {
		name  string
		point math3d.Vec3
		want  float64
	}{
		{"on plane", math3d.V3(7, -3, 2), 0},
		{"in front", math3d.V3(0, 0, 5), 3},
		{"behind", math3d.V3(0, 0, -1), -3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := plane.DistanceToPoint(tc.point); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlaneNormalize(t *testing.T) {
	plane := Plane{Normal: math3d.V3(0, 3, 4), D: 10}
	plane.Normalize()

	if math.Abs(plane.Normal.Y-0.6) > 1e-9 || math.Abs(plane.Normal.Z-0.8) > 1e-9 {
		t.Errorf("normal = %v, want (0, 0.6, 0.8)", plane.Normal)
	}
	if math.Abs(plane.D-2) > 1e-9 {
		t.Errorf("D = %v, want 2", plane.D)
	}

	// Degenerate planes are left alone
	zero := Plane{D: 3}
	zero.Normalize()
	if zero.D != 3 {
		t.Errorf("degenerate D = %v, want 3", zero.D)
	}
}

func TestAABBExtend(t *testing.T) {
	box := PointAABB(math3d.V3(1, 1, 1))
	for _, p := range []math3d.Vec3{
		math3d.V3(-1, 2, 0),
		math3d.V3(3, -2, 1),
		math3d.V3(0, 0, 5),
	} {
		box = box.Extend(p)
	}

	if box.Min != math3d.V3(-1, -2, 0) {
		t.Errorf("min = %v, want (-1, -2, 0)", box.Min)
	}
	if box.Max != math3d.V3(3, 2, 5) {
		t.Errorf("max = %v, want (3, 2, 5)", box.Max)
	}
	if c := box.Center(); c != math3d.V3(1, 0, 2.5) {
		t.Errorf("center = %v, want (1, 0, 2.5)", c)
	}
}

func TestAABBRadius(t *testing.T) {
	box := NewAABB(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1))
	if r := box.Radius(); math.Abs(r-math.Sqrt(3)) > 1e-9 {
		t.Errorf("radius = %v, want sqrt(3)", r)
	}
	if r := PointAABB(math3d.V3(4, 5, 6)).Radius(); r != 0 {
		t.Errorf("point radius = %v, want 0", r)
	}
}

func TestFrustumPlanesNormalized(t *testing.T) {
	view := math3d.LookAt(math3d.V3(3, 2, 5), math3d.Zero3(), math3d.V3(0, 1, 0))
	f := NewFrustumFromMatrix(math3d.Perspective(math.Pi/4, 1.5, 0.1, 100).Mul(view))

	for i, plane := range f.Planes {
		if l := plane.Normal.Len(); math.Abs(l-1) > 1e-6 {
			t.Errorf("plane %d normal length = %v, want 1", i, l)
		}
	}
}

func TestFrustumPlaneOrder(t *testing.T) {
	f := testFrustum(1, 100)

	// Each inward normal points away from the side it bounds
	checks := []struct {
		plane int
		axis  func(math3d.Vec3) float64
		sign  float64
	}{
		{FrustumLeft, func(v math3d.Vec3) float64 { return v.X }, 1},
		{FrustumRight, func(v math3d.Vec3) float64 { return v.X }, -1},
		{FrustumBottom, func(v math3d.Vec3) float64 { return v.Y }, 1},
		{FrustumTop, func(v math3d.Vec3) float64 { return v.Y }, -1},
		{FrustumNear, func(v math3d.Vec3) float64 { return v.Z }, -1},
		{FrustumFar, func(v math3d.Vec3) float64 { return v.Z }, 1},
	}
	for _, c := range checks {
		if got := c.axis(f.Planes[c.plane].Normal) * c.sign; got <= 0 {
			t.Errorf("plane %d normal = %v, points the wrong way", c.plane, f.Planes[c.plane].Normal)
		}
	}
}

func TestFrustumContainsPoint(t *testing.T) {
	f := testFrustum(0.1, 100)

	tests := []struct {
		name  string
		point math3d.Vec3
		want  bool
	}{
		{"center near", math3d.V3(0, 0, -1), true},
		{"center far", math3d.V3(0, 0, -99), true},
		{"behind camera", math3d.V3(0, 0, 1), false},
		{"past far plane", math3d.V3(0, 0, -200), false},
		{"before near plane", math3d.V3(0, 0, -0.01), false},
		{"off to the side", math3d.V3(50, 0, -10), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.ContainsPoint(tc.point); got != tc.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tc.point, got, tc.want)
			}
		})
	}
}

func TestFrustumIntersectAABB(t *testing.T) {
	f := testFrustum(1, 100)

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"inside", NewAABB(math3d.V3(-1, -1, -10), math3d.V3(1, 1, -5)), true},
		{"straddles near plane", NewAABB(math3d.V3(-1, -1, -2), math3d.V3(1, 1, 2)), true},
		{"behind camera", NewAABB(math3d.V3(-1, -1, 5), math3d.V3(1, 1, 10)), false},
		{"past far plane", NewAABB(math3d.V3(-1, -1, -150), math3d.V3(1, 1, -120)), false},
		{"right of view", NewAABB(math3d.V3(100, -1, -10), math3d.V3(110, 1, -5)), false},
		{"encloses frustum", NewAABB(math3d.V3(-200, -200, -200), math3d.V3(200, 200, 200)), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.IntersectAABB(tc.box); got != tc.want {
				t.Errorf("IntersectAABB(%v) = %v, want %v", tc.box, got, tc.want)
			}
		})
	}
}

func TestFrustumFollowsCamera(t *testing.T) {
	cam := NewCamera()
	cam.SetAspectRatio(1)
	cam.Orbit(math3d.Zero3(), 10, math.Pi/2, 0) // On +X looking at the origin

	f := cam.GetFrustum()
	if !f.ContainsPoint(math3d.Zero3()) {
		t.Error("orbit target should be visible")
	}
	if f.ContainsPoint(math3d.V3(20, 0, 0)) {
		t.Error("point behind the camera should not be visible")
	}
}

func TestFrustumFromMVPUsesObjectSpace(t *testing.T) {
	proj := math3d.Perspective(math.Pi/3, 1.0, 0.1, 100.0)
	view := math3d.LookAt(math3d.V3(0, 0, 5), math3d.Zero3(), math3d.V3(0, 1, 0))
	unit := NewAABB(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1))

	if !NewFrustumFromMatrix(proj.Mul(view)).IntersectAABB(unit) {
		t.Error("box at origin should be visible")
	}

	// The same local box pushed far to the side by the model matrix is not
	model := math3d.Translate(math3d.V3(50, 0, 0))
	if NewFrustumFromMatrix(proj.Mul(view).Mul(model)).IntersectAABB(unit) {
		t.Error("translated box should be culled")
	}
}

func BenchmarkFrustumIntersectAABB(b *testing.B) {
	f := testFrustum(0.1, 1000)
	box := NewAABB(math3d.V3(-1, -1, -10), math3d.V3(1, 1, -5))

	for b.Loop() {
		_ = f.IntersectAABB(box)
	}
}

func BenchmarkFrustumExtraction(b *testing.B) {
	proj := math3d.Perspective(math.Pi/3, 16.0/9.0, 0.1, 1000.0)
	view := math3d.LookAt(math3d.V3(0, 10, 20), math3d.V3(0, 0, 0), math3d.V3(0, 1, 0))
	mvp := proj.Mul(view)

	for b.Loop() {
		_ = NewFrustumFromMatrix(mvp)
	}
}
