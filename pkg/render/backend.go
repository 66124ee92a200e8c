package render

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taigrr/pbrview/pkg/math3d"
	"github.com/taigrr/pbrview/pkg/models"
	"github.com/taigrr/pbrview/pkg/pbr"
)

var (
	// ErrInvalidHandle is returned for a handle that was never issued or has
	// already been freed.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrEmptyMesh is returned when uploading a mesh with no vertices.
	ErrEmptyMesh = errors.New("mesh has no vertices")
	// ErrInvalidTexture is returned when uploading a malformed texture.
	ErrInvalidTexture = errors.New("invalid texture")
)

// Vertex stream strides in float32s.
const (
	// TriangleStride is position(3) color(4) normal(3) uv(2).
	TriangleStride = 12
	// LineStride is position(3) color(4), used by edge and point streams.
	LineStride = 7
)

// Backend uploads geometry and textures to a device and draws them. Handles
// are owned by the caller and must be released with the matching Free call.
type Backend interface {
	UploadMesh(mesh *models.Mesh) (MeshHandle, error)
	UploadTexture(tex *models.Texture) (TextureHandle, error)
	DrawMesh(h MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, wireframe bool) error
	DrawMeshPBR(h MeshHandle, params PBRParams) error
	DrawMeshEdges(h MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, width float64) error
	DrawMeshPoints(h MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, size float64) error
	FreeMesh(h *MeshHandle) error
	FreeTexture(h *TextureHandle) error
}

// MeshHandle refers to an uploaded mesh. The zero value is not a valid handle.
type MeshHandle struct {
	ID               uint32
	VertexCount      int // Triangle stream vertices (3 per triangle)
	EdgeVertexCount  int // Line stream vertices (2 per edge)
	PointVertexCount int
	Bounds           AABB // Local-space bounds for culling
}

// HasTriangles reports whether the mesh can be drawn filled.
func (h MeshHandle) HasTriangles() bool { return h.ID != 0 && h.VertexCount > 0 }

// HasEdges reports whether the mesh carries an edge list.
func (h MeshHandle) HasEdges() bool { return h.ID != 0 && h.EdgeVertexCount > 0 }

// HasPoints reports whether the mesh can be drawn as points.
func (h MeshHandle) HasPoints() bool { return h.ID != 0 && h.PointVertexCount > 0 }

// TriangleCount returns the number of uploaded triangles.
func (h MeshHandle) TriangleCount() int { return h.VertexCount / 3 }

// TextureHandle refers to an uploaded texture. The zero value means "no
// texture" wherever a handle is optional.
type TextureHandle struct {
	ID       uint32
	Width    int
	Height   int
	Channels int
}

// IsValid reports whether the handle refers to an uploaded texture.
func (h TextureHandle) IsValid() bool { return h.ID != 0 }

// PBRParams carries everything DrawMeshPBR needs besides the mesh.
type PBRParams struct {
	Model      math3d.Mat4
	View       math3d.Mat4
	Projection math3d.Mat4

	BaseColor math3d.Vec4
	Metallic  float64
	Roughness float64

	// Zero handles mean the map is absent.
	BaseColorTexture         TextureHandle
	MetallicRoughnessTexture TextureHandle
	NormalTexture            TextureHandle

	CameraPos math3d.Vec3
	Light     pbr.Light
}

// SetMaterial copies a loaded material's factors into p and maps its texture
// indices through handles, which must be ordered like Model.Textures. A nil
// material selects the defaults. Indices with no handle leave the map absent.
func (p *PBRParams) SetMaterial(mat *models.Material, handles []TextureHandle) {
	m := models.NewMaterial("")
	if mat != nil {
		m = *mat
	}

	lookup := func(i int) TextureHandle {
		if i < 0 || i >= len(handles) {
			return TextureHandle{}
		}
		return handles[i]
	}

	p.BaseColor = m.BaseColor
	p.Metallic = m.Metallic
	p.Roughness = m.Roughness
	p.BaseColorTexture = lookup(m.BaseColorTexture)
	p.MetallicRoughnessTexture = lookup(m.MetallicRoughnessTexture)
	p.NormalTexture = lookup(m.NormalTexture)
}

// meshResource is the device-side copy of a mesh.
type meshResource struct {
	triangles []float32
	edges     []float32
	points    []float32
}

// SoftwareBackend is a Backend whose device memory is a resource table in
// process memory and whose pipeline is the software rasterizer. It is not
// safe for concurrent use.
type SoftwareBackend struct {
	raster   *Rasterizer
	logger   *zap.Logger
	filter   FilterMode
	nextID   uint32
	meshes   map[uint32]*meshResource
	textures map[uint32]*Texture
}

var _ Backend = (*SoftwareBackend)(nil)

// Option configures a SoftwareBackend.
type Option func(*SoftwareBackend)

// WithLogger sets the logger used for upload and free diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *SoftwareBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithFilterMode sets the sampling filter for uploaded textures.
func WithFilterMode(m FilterMode) Option {
	return func(b *SoftwareBackend) { b.filter = m }
}

// WithBackfaceCulling enables or disables culling of back-facing triangles.
func WithBackfaceCulling(enabled bool) Option {
	return func(b *SoftwareBackend) { b.raster.DisableBackfaceCulling = !enabled }
}

// NewSoftwareBackend creates a backend drawing into fb.
func NewSoftwareBackend(fb *Framebuffer, opts ...Option) *SoftwareBackend {
	b := &SoftwareBackend{
		raster:   NewRasterizer(fb),
		logger:   zap.NewNop(),
		meshes:   make(map[uint32]*meshResource),
		textures: make(map[uint32]*Texture),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Rasterizer exposes the pipeline, mainly for culling statistics.
func (b *SoftwareBackend) Rasterizer() *Rasterizer { return b.raster }

// Framebuffer returns the current render target.
func (b *SoftwareBackend) Framebuffer() *Framebuffer { return b.raster.Framebuffer() }

// SetFramebuffer swaps the render target, e.g. after a terminal resize.
func (b *SoftwareBackend) SetFramebuffer(fb *Framebuffer) { b.raster.SetFramebuffer(fb) }

// BeginFrame clears color and depth and resets per-frame statistics.
func (b *SoftwareBackend) BeginFrame(background Color) {
	b.raster.Framebuffer().Clear(background)
	b.raster.ClearDepth()
	b.raster.ResetCullingStats()
}

// MeshCount returns the number of live mesh resources.
func (b *SoftwareBackend) MeshCount() int { return len(b.meshes) }

// TextureCount returns the number of live texture resources.
func (b *SoftwareBackend) TextureCount() int { return len(b.textures) }

func (b *SoftwareBackend) newID() uint32 {
	b.nextID++
	return b.nextID
}

// UploadMesh expands the mesh into triangle, edge and point streams. A mesh
// without faces uploads as edges and points only. Triangles and edges that
// reference missing vertices are dropped. Every call creates a new resource.
func (b *SoftwareBackend) UploadMesh(mesh *models.Mesh) (MeshHandle, error) {
	if mesh == nil || len(mesh.Vertices) == 0 {
		return MeshHandle{}, ErrEmptyMesh
	}

	n := uint32(len(mesh.Vertices))
	res := &meshResource{}
	dropped := 0

	if len(mesh.Faces) > 0 {
		res.triangles = make([]float32, 0, len(mesh.Faces)*TriangleStride)
		for i := 0; i+2 < len(mesh.Faces); i += 3 {
			a, bb, c := mesh.Faces[i], mesh.Faces[i+1], mesh.Faces[i+2]
			if a >= n || bb >= n || c >= n {
				dropped++
				continue
			}
			for _, idx := range [3]uint32{a, bb, c} {
				res.triangles = appendTriangleVertex(res.triangles, mesh.Vertices[idx])
			}
		}
	}

	if len(mesh.Edges) > 0 {
		res.edges = make([]float32, 0, len(mesh.Edges)*LineStride)
		for i := 0; i+1 < len(mesh.Edges); i += 2 {
			a, bb := mesh.Edges[i], mesh.Edges[i+1]
			if a >= n || bb >= n {
				dropped++
				continue
			}
			res.edges = appendLineVertex(res.edges, mesh.Vertices[a])
			res.edges = appendLineVertex(res.edges, mesh.Vertices[bb])
		}
	}

	res.points = make([]float32, 0, len(mesh.Vertices)*LineStride)
	bounds := PointAABB(mesh.Vertices[0].Position)
	for _, v := range mesh.Vertices {
		res.points = appendLineVertex(res.points, v)
		bounds = bounds.Extend(v.Position)
	}

	if dropped > 0 {
		b.logger.Warn("dropped primitives with out-of-range indices",
			zap.String("mesh", mesh.Name),
			zap.Int("dropped", dropped),
		)
	}

	h := MeshHandle{
		ID:               b.newID(),
		VertexCount:      len(res.triangles) / TriangleStride,
		EdgeVertexCount:  len(res.edges) / LineStride,
		PointVertexCount: len(res.points) / LineStride,
		Bounds:           bounds,
	}
	b.meshes[h.ID] = res

	b.logger.Debug("mesh uploaded",
		zap.String("mesh", mesh.Name),
		zap.Uint32("id", h.ID),
		zap.Int("triangles", h.TriangleCount()),
		zap.Int("edges", h.EdgeVertexCount/2),
		zap.Int("points", h.PointVertexCount),
	)
	return h, nil
}

// UploadTexture copies the texture into RGBA8 device memory.
func (b *SoftwareBackend) UploadTexture(tex *models.Texture) (TextureHandle, error) {
	if tex == nil {
		return TextureHandle{}, ErrInvalidTexture
	}
	if err := tex.Validate(); err != nil {
		return TextureHandle{}, fmt.Errorf("%w: %w", ErrInvalidTexture, err)
	}

	t := TextureFromModel(tex)
	t.FilterMode = b.filter

	h := TextureHandle{
		ID:       b.newID(),
		Width:    tex.Width,
		Height:   tex.Height,
		Channels: tex.Channels,
	}
	b.textures[h.ID] = t

	b.logger.Debug("texture uploaded",
		zap.String("texture", tex.Name),
		zap.Uint32("id", h.ID),
		zap.Int("width", tex.Width),
		zap.Int("height", tex.Height),
		zap.Int("channels", tex.Channels),
	)
	return h, nil
}

// FreeMesh releases the mesh and zeroes the handle. Freeing an already freed
// handle returns ErrInvalidHandle.
func (b *SoftwareBackend) FreeMesh(h *MeshHandle) error {
	if h == nil {
		return ErrInvalidHandle
	}
	if _, ok := b.meshes[h.ID]; !ok {
		return fmt.Errorf("%w: mesh %d", ErrInvalidHandle, h.ID)
	}
	delete(b.meshes, h.ID)
	b.logger.Debug("mesh freed", zap.Uint32("id", h.ID))
	*h = MeshHandle{}
	return nil
}

// FreeTexture releases the texture and zeroes the handle. Freeing an already
// freed handle returns ErrInvalidHandle.
func (b *SoftwareBackend) FreeTexture(h *TextureHandle) error {
	if h == nil {
		return ErrInvalidHandle
	}
	if _, ok := b.textures[h.ID]; !ok {
		return fmt.Errorf("%w: texture %d", ErrInvalidHandle, h.ID)
	}
	delete(b.textures, h.ID)
	b.logger.Debug("texture freed", zap.Uint32("id", h.ID))
	*h = TextureHandle{}
	return nil
}

func (b *SoftwareBackend) mesh(h MeshHandle) (*meshResource, error) {
	res, ok := b.meshes[h.ID]
	if !ok {
		return nil, fmt.Errorf("%w: mesh %d", ErrInvalidHandle, h.ID)
	}
	return res, nil
}

// sampler resolves an optional texture handle. The result is a nil interface
// when the handle is zero.
func (b *SoftwareBackend) sampler(h TextureHandle) (pbr.Sampler, error) {
	if !h.IsValid() {
		return nil, nil
	}
	t, ok := b.textures[h.ID]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrInvalidHandle, h.ID)
	}
	return t, nil
}

// DrawMesh draws the triangle stream with vertex color times tint and no
// lighting. With wireframe set it draws triangle outlines instead.
func (b *SoftwareBackend) DrawMesh(h MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, wireframe bool) error {
	res, err := b.mesh(h)
	if err != nil {
		return err
	}
	if len(res.triangles) == 0 || b.raster.cull(h.Bounds, mvp) {
		return nil
	}

	unlit := func(attr *varyings) (Color, bool) {
		return colorFromVec4(attr.vec4(attrColor)), true
	}

	s := res.triangles
	for off := 0; off+3*TriangleStride <= len(s); off += 3 * TriangleStride {
		var tri [3]clipVertex
		for k := range 3 {
			base := off + k*TriangleStride
			tri[k].Clip = mvp.MulVec4(math3d.V4FromV3(streamVec3(s, base), 1))
			tri[k].Attr.setVec4(attrColor, streamVec4(s, base+3).Mul(tint))
		}
		if wireframe {
			b.raster.drawLine(tri[0], tri[1], 1)
			b.raster.drawLine(tri[1], tri[2], 1)
			b.raster.drawLine(tri[2], tri[0], 1)
			continue
		}
		b.raster.drawTriangle(tri, unlit)
	}
	return nil
}

// DrawMeshPBR draws the triangle stream lit by params.Light, evaluating the
// Cook-Torrance model at every fragment.
func (b *SoftwareBackend) DrawMeshPBR(h MeshHandle, params PBRParams) error {
	res, err := b.mesh(h)
	if err != nil {
		return err
	}

	mat := pbr.Material{
		BaseColor: params.BaseColor,
		Metallic:  params.Metallic,
		Roughness: params.Roughness,
	}
	if mat.BaseColorMap, err = b.sampler(params.BaseColorTexture); err != nil {
		return err
	}
	if mat.MetallicRoughnessMap, err = b.sampler(params.MetallicRoughnessTexture); err != nil {
		return err
	}
	if mat.NormalMap, err = b.sampler(params.NormalTexture); err != nil {
		return err
	}

	mvp := params.Projection.Mul(params.View).Mul(params.Model)
	if len(res.triangles) == 0 || b.raster.cull(h.Bounds, mvp) {
		return nil
	}
	normalMatrix := params.Model.NormalMatrix()

	shade := func(attr *varyings) (Color, bool) {
		frag := pbr.Fragment{
			Position: attr.vec3(attrPos),
			Normal:   attr.vec3(attrNormal),
			Color:    attr.vec4(attrColor),
			UV:       math3d.V2(attr[attrUV], attr[attrUV+1]),
		}
		return colorFromVec4(pbr.Shade(frag, mat, params.Light, params.CameraPos)), true
	}

	s := res.triangles
	for off := 0; off+3*TriangleStride <= len(s); off += 3 * TriangleStride {
		var tri [3]clipVertex
		for k := range 3 {
			base := off + k*TriangleStride
			pos := streamVec3(s, base)
			tri[k].Clip = mvp.MulVec4(math3d.V4FromV3(pos, 1))
			tri[k].Attr.setVec3(attrPos, params.Model.MulVec3(pos))
			tri[k].Attr.setVec4(attrColor, streamVec4(s, base+3))
			tri[k].Attr.setVec3(attrNormal, normalMatrix.MulVec3Dir(streamVec3(s, base+7)))
			tri[k].Attr[attrUV] = float64(s[base+10])
			tri[k].Attr[attrUV+1] = float64(s[base+11])
		}
		b.raster.drawTriangle(tri, shade)
	}
	return nil
}

// DrawMeshEdges draws the edge list as depth-tested lines of the given width.
func (b *SoftwareBackend) DrawMeshEdges(h MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, width float64) error {
	res, err := b.mesh(h)
	if err != nil {
		return err
	}
	if len(res.edges) == 0 || b.raster.cull(h.Bounds, mvp) {
		return nil
	}

	s := res.edges
	for off := 0; off+2*LineStride <= len(s); off += 2 * LineStride {
		a := lineClipVertex(s, off, mvp, tint)
		c := lineClipVertex(s, off+LineStride, mvp, tint)
		b.raster.drawLine(a, c, width)
	}
	return nil
}

// DrawMeshPoints draws every vertex as a round sprite of the given size in
// pixels.
func (b *SoftwareBackend) DrawMeshPoints(h MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, size float64) error {
	res, err := b.mesh(h)
	if err != nil {
		return err
	}
	if len(res.points) == 0 || b.raster.cull(h.Bounds, mvp) {
		return nil
	}

	s := res.points
	for off := 0; off+LineStride <= len(s); off += LineStride {
		b.raster.drawPoint(lineClipVertex(s, off, mvp, tint), size)
	}
	return nil
}

func appendTriangleVertex(s []float32, v models.Vertex) []float32 {
	return append(s,
		float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z),
		float32(v.Color.X), float32(v.Color.Y), float32(v.Color.Z), float32(v.Color.W),
		float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z),
		float32(v.UV.X), float32(v.UV.Y),
	)
}

func appendLineVertex(s []float32, v models.Vertex) []float32 {
	return append(s,
		float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z),
		float32(v.Color.X), float32(v.Color.Y), float32(v.Color.Z), float32(v.Color.W),
	)
}

func lineClipVertex(s []float32, off int, mvp math3d.Mat4, tint math3d.Vec4) clipVertex {
	var v clipVertex
	v.Clip = mvp.MulVec4(math3d.V4FromV3(streamVec3(s, off), 1))
	v.Attr.setVec4(attrColor, streamVec4(s, off+3).Mul(tint))
	return v
}

func streamVec3(s []float32, off int) math3d.Vec3 {
	return math3d.V3(float64(s[off]), float64(s[off+1]), float64(s[off+2]))
}

func streamVec4(s []float32, off int) math3d.Vec4 {
	return math3d.V4(float64(s[off]), float64(s[off+1]), float64(s[off+2]), float64(s[off+3]))
}
