package render

import (
	"github.com/taigrr/pbrview/pkg/math3d"
)

// Wireframe draws undepth-tested scene helpers (ground grid, axes, light
// marker) straight into the framebuffer through a camera.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera: camera,
		fb:     fb,
	}
}

// DrawLine3D draws a line in 3D space.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	x1, y1, _, vis1 := w.camera.WorldToScreen(p1, w.fb.Width, w.fb.Height)
	x2, y2, _, vis2 := w.camera.WorldToScreen(p2, w.fb.Width, w.fb.Height)

	// Only lines with both ends on screen; no clipping
	if !vis1 || !vis2 {
		return
	}

	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(length float64) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)   // X axis
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen) // Y axis
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)  // Z axis
}

// DrawGrid draws a grid on the XZ plane at height y.
func (w *Wireframe) DrawGrid(size, step, y float64, color Color) {
	if step <= 0 {
		return
	}
	half := size / 2
	for x := -half; x <= half+1e-9; x += step {
		w.DrawLine3D(math3d.V3(x, y, -half), math3d.V3(x, y, half), color)
	}
	for z := -half; z <= half+1e-9; z += step {
		w.DrawLine3D(math3d.V3(-half, y, z), math3d.V3(half, y, z), color)
	}
}

// DrawLight marks a point light with a filled square and reports whether it
// was on screen.
func (w *Wireframe) DrawLight(pos math3d.Vec3, color Color) bool {
	if !w.camera.GetFrustum().ContainsPoint(pos) {
		return false
	}
	x, y, _, ok := w.camera.WorldToScreen(pos, w.fb.Width, w.fb.Height)
	if !ok {
		return false
	}
	w.fb.DrawRect(int(x)-1, int(y)-1, 3, 3, color)
	return true
}
