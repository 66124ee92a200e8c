package render

import (
	"math"

	"github.com/taigrr/pbrview/pkg/math3d"
)

// Varying slots interpolated across a primitive.
const (
	attrPos    = 0  // World position (xyz)
	attrNormal = 3  // World normal (xyz)
	attrColor  = 6  // RGBA
	attrUV     = 10 // Texture coordinates (uv)
	attrCount  = 12
)

type varyings [attrCount]float64

func (a *varyings) vec3(slot int) math3d.Vec3 {
	return math3d.V3(a[slot], a[slot+1], a[slot+2])
}

func (a *varyings) vec4(slot int) math3d.Vec4 {
	return math3d.V4(a[slot], a[slot+1], a[slot+2], a[slot+3])
}

func (a *varyings) setVec3(slot int, v math3d.Vec3) {
	a[slot], a[slot+1], a[slot+2] = v.X, v.Y, v.Z
}

func (a *varyings) setVec4(slot int, v math3d.Vec4) {
	a[slot], a[slot+1], a[slot+2], a[slot+3] = v.X, v.Y, v.Z, v.W
}

// clipVertex is a vertex after the vertex stage: clip-space position plus the
// attributes to interpolate.
type clipVertex struct {
	Clip math3d.Vec4
	Attr varyings
}

func lerpClipVertex(a, b clipVertex, t float64) clipVertex {
	out := clipVertex{Clip: a.Clip.Lerp(b.Clip, t)}
	for i := range out.Attr {
		out.Attr[i] = a.Attr[i] + (b.Attr[i]-a.Attr[i])*t
	}
	return out
}

// nearDistance is the signed distance to the near plane (z = -w) in clip
// space. Non-negative means in front of it.
func (v clipVertex) nearDistance() float64 {
	return v.Clip.Z + v.Clip.W
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	Z    float64 // NDC depth (for Z-buffer)
	InvW float64 // 1/W (for perspective-correct interpolation)
	Attr varyings
}

// fragmentFunc shades one fragment from perspective-correct varyings. A false
// return discards the fragment.
type fragmentFunc func(attr *varyings) (Color, bool)

// Depth offset applied to lines and points so they win against the surface
// they lie on.
const overlayDepthBias = 2e-4

// Rasterizer draws clip-space primitives into a framebuffer with a depth
// buffer.
type Rasterizer struct {
	fb                     *Framebuffer
	zbuffer                []float64    // Depth buffer (1D array, row-major)
	CullingStats           CullingStats // Statistics for debugging/benchmarking
	DisableBackfaceCulling bool         // If true, render both sides of triangles
}

// CullingStats tracks frustum culling performance.
type CullingStats struct {
	MeshesTested int // Total meshes tested for culling
	MeshesCulled int // Meshes culled (not rendered)
	MeshesDrawn  int // Meshes that passed culling
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{fb: fb}
	r.Resize()
	return r
}

// Framebuffer returns the render target.
func (r *Rasterizer) Framebuffer() *Framebuffer {
	return r.fb
}

// SetFramebuffer swaps the render target, resizing the depth buffer to match.
func (r *Rasterizer) SetFramebuffer(fb *Framebuffer) {
	r.fb = fb
	r.Resize()
}

// Resize resizes the rasterizer's buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
	r.ClearDepth()
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// ResetCullingStats resets the culling statistics (call once per frame).
func (r *Rasterizer) ResetCullingStats() {
	r.CullingStats = CullingStats{}
}

// cull reports whether object-space bounds fall entirely outside the frustum
// of mvp, and counts the test.
func (r *Rasterizer) cull(bounds AABB, mvp math3d.Mat4) bool {
	r.CullingStats.MeshesTested++
	if !NewFrustumFromMatrix(mvp).IntersectAABB(bounds) {
		r.CullingStats.MeshesCulled++
		return true
	}
	r.CullingStats.MeshesDrawn++
	return false
}

// getDepth returns the depth at (x, y).
func (r *Rasterizer) getDepth(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

// setDepth sets the depth at (x, y).
func (r *Rasterizer) setDepth(x, y int, z float64) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return
	}
	r.zbuffer[y*r.Width()+x] = z
}

// toScreen performs the perspective divide and viewport mapping.
func (r *Rasterizer) toScreen(v clipVertex) screenVertex {
	invW := 1.0 / v.Clip.W
	return screenVertex{
		X:    (v.Clip.X*invW + 1) * 0.5 * float64(r.Width()),
		Y:    (1 - v.Clip.Y*invW) * 0.5 * float64(r.Height()), // Y flipped
		Z:    v.Clip.Z * invW,
		InvW: invW,
		Attr: v.Attr,
	}
}

// clipNear clips a triangle against the near plane. It returns the vertices
// of the resulting convex polygon, at most four.
func clipNear(tri [3]clipVertex) []clipVertex {
	out := make([]clipVertex, 0, 4)
	for i := range 3 {
		a, b := tri[i], tri[(i+1)%3]
		da, db := a.nearDistance(), b.nearDistance()
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpClipVertex(a, b, da/(da-db)))
		}
	}
	return out
}

// drawTriangle clips, culls and rasterizes one triangle. Front faces are
// counter-clockwise in NDC.
func (r *Rasterizer) drawTriangle(tri [3]clipVertex, shade fragmentFunc) {
	inside := 0
	for _, v := range tri {
		if v.nearDistance() >= 0 && v.Clip.W > 0 {
			inside++
		}
	}

	switch inside {
	case 0:
		return
	case 3:
		r.rasterize([3]screenVertex{r.toScreen(tri[0]), r.toScreen(tri[1]), r.toScreen(tri[2])}, shade)
	default:
		poly := clipNear(tri)
		for i := 1; i+1 < len(poly); i++ {
			if poly[0].Clip.W <= 0 || poly[i].Clip.W <= 0 || poly[i+1].Clip.W <= 0 {
				continue
			}
			r.rasterize([3]screenVertex{
				r.toScreen(poly[0]),
				r.toScreen(poly[i]),
				r.toScreen(poly[i+1]),
			}, shade)
		}
	}
}

// rasterize fills a screen-space triangle using edge functions with
// incremental updates and perspective-correct attribute interpolation.
func (r *Rasterizer) rasterize(sv [3]screenVertex, shade fragmentFunc) {
	// Screen Y points down, so a counter-clockwise front face has
	// negative signed area here.
	area2 := (sv[1].X-sv[0].X)*(sv[2].Y-sv[0].Y) - (sv[1].Y-sv[0].Y)*(sv[2].X-sv[0].X)
	if area2 == 0 || math.IsNaN(area2) {
		return
	}
	if area2 > 0 && !r.DisableBackfaceCulling {
		return
	}

	// Bounding box (clamped to screen)
	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	if minX > maxX || minY > maxY {
		return
	}

	// Edge 0: v1 -> v2, Edge 1: v2 -> v0, Edge 2: v0 -> v1
	A0, B0, C0 := edgeCoeffs(sv[1].X, sv[1].Y, sv[2].X, sv[2].Y)
	A1, B1, C1 := edgeCoeffs(sv[2].X, sv[2].Y, sv[0].X, sv[0].Y)
	A2, B2, C2 := edgeCoeffs(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y)

	// Flip the edges of clockwise-on-screen triangles so inside is positive
	if area2 < 0 {
		A0, B0, C0 = -A0, -B0, -C0
		A1, B1, C1 = -A1, -B1, -C1
		A2, B2, C2 = -A2, -B2, -C2
		area2 = -area2
	}
	invArea := 1.0 / area2

	px := float64(minX) + 0.5
	py := float64(minY) + 0.5

	w0Row := edgeFunc(A0, B0, C0, px, py)
	w1Row := edgeFunc(A1, B1, C1, px, py)
	w2Row := edgeFunc(A2, B2, C2, px, py)

	width := r.Width()
	zbuffer := r.zbuffer
	fb := r.fb
	var attr varyings

	for y := minY; y <= maxY; y++ {
		w0 := w0Row
		w1 := w1Row
		w2 := w2Row
		rowOffset := y * width

		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				bc0 := w0 * invArea
				bc1 := w1 * invArea
				bc2 := w2 * invArea

				z := bc0*sv[0].Z + bc1*sv[1].Z + bc2*sv[2].Z

				idx := rowOffset + x
				if z <= 1 && z < zbuffer[idx] {
					pw0 := bc0 * sv[0].InvW
					pw1 := bc1 * sv[1].InvW
					pw2 := bc2 * sv[2].InvW
					invOneOverW := 1.0 / (pw0 + pw1 + pw2)
					pw0 *= invOneOverW
					pw1 *= invOneOverW
					pw2 *= invOneOverW

					for i := range attr {
						attr[i] = pw0*sv[0].Attr[i] + pw1*sv[1].Attr[i] + pw2*sv[2].Attr[i]
					}

					if c, ok := shade(&attr); ok && c.A > 0 {
						zbuffer[idx] = z
						fb.Blend(x, y, c)
					}
				}
			}

			// Step in X direction
			w0 += A0
			w1 += A1
			w2 += A2
		}

		// Step in Y direction
		w0Row += B0
		w1Row += B1
		w2Row += B2
	}
}

// drawLine draws a depth-tested line of the given pixel width between two
// clip-space vertices, interpolating their colors.
func (r *Rasterizer) drawLine(a, b clipVertex, width float64) {
	da, db := a.nearDistance(), b.nearDistance()
	if da < 0 && db < 0 {
		return
	}
	if da < 0 {
		a = lerpClipVertex(a, b, da/(da-db))
	} else if db < 0 {
		b = lerpClipVertex(b, a, db/(db-da))
	}
	if a.Clip.W <= 0 || b.Clip.W <= 0 {
		return
	}

	sa, sb := r.toScreen(a), r.toScreen(b)
	ca, cb := sa.Attr.vec4(attrColor), sb.Attr.vec4(attrColor)

	steps := int(math.Ceil(math.Max(math.Abs(sb.X-sa.X), math.Abs(sb.Y-sa.Y))))
	steps = max(steps, 1)
	// Keep pathological projections from stalling the frame
	steps = min(steps, 4*(r.Width()+r.Height()))

	size := max(1, int(math.Round(width)))
	offset := size / 2

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Floor(sa.X + (sb.X-sa.X)*t))
		y := int(math.Floor(sa.Y + (sb.Y-sa.Y)*t))
		z := sa.Z + (sb.Z-sa.Z)*t - overlayDepthBias
		if z > 1 {
			continue
		}
		c := colorFromVec4(ca.Lerp(cb, t))

		for oy := range size {
			for ox := range size {
				r.plot(x-offset+ox, y-offset+oy, z, c)
			}
		}
	}
}

// drawPoint draws a round, antialiased point sprite of the given diameter.
func (r *Rasterizer) drawPoint(v clipVertex, size float64) {
	if v.nearDistance() < 0 || v.Clip.W <= 0 {
		return
	}
	sv := r.toScreen(v)
	z := sv.Z - overlayDepthBias
	if z > 1 {
		return
	}

	base := sv.Attr.vec4(attrColor)
	if size <= 1 {
		r.plot(int(math.Floor(sv.X)), int(math.Floor(sv.Y)), z, colorFromVec4(base))
		return
	}
	radius := size / 2

	minX := int(math.Floor(sv.X - radius))
	maxX := int(math.Ceil(sv.X + radius))
	minY := int(math.Floor(sv.Y - radius))
	maxY := int(math.Ceil(sv.Y + radius))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - sv.X
			dy := float64(y) + 0.5 - sv.Y
			// Distance in sprite coordinates, 0.5 at the rim
			dist := math.Sqrt(dx*dx+dy*dy) / size
			if dist > 0.5 {
				continue
			}
			c := base
			c.W *= 1 - smoothstep(0.4, 0.5, dist)
			r.plot(x, y, z, colorFromVec4(c))
		}
	}
}

// plot writes one depth-tested, blended pixel.
func (r *Rasterizer) plot(x, y int, z float64, c Color) {
	if c.A == 0 || z >= r.getDepth(x, y) {
		return
	}
	r.setDepth(x, y, z)
	r.fb.Blend(x, y, c)
}

// edgeCoeffs returns A, B, C for the edge function A*x + B*y + C of the
// directed edge (x0,y0) -> (x1,y1).
func edgeCoeffs(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1 // dy
	B = x1 - x0 // -dx
	C = x0*y1 - x1*y0
	return
}

// edgeFunc evaluates edge function at point (x, y)
func edgeFunc(A, B, C, x, y float64) float64 {
	return A*x + B*y + C
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := math3d.Clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
