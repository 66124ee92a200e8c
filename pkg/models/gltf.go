package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder (KHR_texture_webp)

	"github.com/taigrr/pbrview/pkg/math3d"
)

// Load failures. Whole-load errors wrap one of these so callers can use
// errors.Is; ErrMissingRequiredAttribute only affects a single primitive
// and is logged, never returned from Load.
var (
	ErrUnsupportedFormat        = errors.New("unsupported scene format")
	ErrParseFailed              = errors.New("parse scene")
	ErrMissingRequiredAttribute = errors.New("missing required attribute")
	ErrEmpty                    = errors.New("scene contains no meshes")
)

// Format is a scene container format.
type Format int

const (
	FormatGLTF Format = iota + 1 // JSON with side buffers or data URIs
	FormatGLB                    // Single binary container
)

func (f Format) String() string {
	switch f {
	case FormatGLTF:
		return "gltf"
	case FormatGLB:
		return "glb"
	default:
		return "unknown"
	}
}

// FormatFromPath selects the container format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf":
		return FormatGLTF, nil
	case ".glb":
		return FormatGLB, nil
	default:
		return 0, fmt.Errorf("%w: %q (use .gltf or .glb)", ErrUnsupportedFormat, ext)
	}
}

// IndexWidth is the byte width of a source index buffer element.
type IndexWidth int

const (
	IndexWidth8  IndexWidth = 1
	IndexWidth16 IndexWidth = 2
	IndexWidth32 IndexWidth = 4
)

// indexWidthOf maps an accessor component type to an index width. glTF only
// allows unsigned integer indices.
func indexWidthOf(ct gltf.ComponentType) (IndexWidth, error) {
	switch ct {
	case gltf.ComponentUbyte:
		return IndexWidth8, nil
	case gltf.ComponentUshort:
		return IndexWidth16, nil
	case gltf.ComponentUint:
		return IndexWidth32, nil
	default:
		return 0, fmt.Errorf("invalid index component type %v", ct)
	}
}

// GLTFLoader loads glTF 2.0 scenes into a Model.
type GLTFLoader struct {
	// Logger receives non-fatal warnings. Defaults to a no-op logger.
	Logger *zap.Logger

	// SmoothNormals computes averaged normals for primitives that have
	// triangles but no NORMAL attribute. Off by default, which leaves them
	// zero.
	SmoothNormals bool

	// DeriveEdges fills Mesh.Edges from the triangle list when the source
	// primitive has no line data of its own.
	DeriveEdges bool
}

// NewGLTFLoader creates a loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		Logger: zap.NewNop(),
	}
}

// LoadScene loads a .gltf or .glb file with default options.
func LoadScene(path string) (*Model, error) {
	return NewGLTFLoader().Load(path)
}

func (l *GLTFLoader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Load reads the file at path. Textures are processed first, then
// materials, then meshes, since each refers to the previous by index.
func (l *GLTFLoader) Load(path string) (*Model, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	log := l.logger().With(zap.String("path", path), zap.Stringer("format", format))
	for _, ext := range doc.ExtensionsRequired {
		log.Warn("required extension not supported, rendering may be wrong", zap.String("extension", ext))
	}

	model := &Model{Name: path}
	remap := l.loadTextures(doc, filepath.Dir(path), model, log)
	l.loadMaterials(doc, remap, model, log)
	l.loadMeshes(doc, model, log)

	if len(model.Meshes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	log.Info("scene loaded",
		zap.Int("meshes", len(model.Meshes)),
		zap.Int("materials", len(model.Materials)),
		zap.Int("textures", len(model.Textures)),
		zap.Int("triangles", model.TriangleCount()),
	)
	return model, nil
}

// loadTextures decodes every usable texture into model.Textures and returns
// a table mapping source texture index to emitted index. Skipped textures
// map to NoTexture, and the emitted list is renumbered without gaps.
func (l *GLTFLoader) loadTextures(doc *gltf.Document, dir string, model *Model, log *zap.Logger) []int {
	remap := make([]int, len(doc.Textures))

	for i, src := range doc.Textures {
		remap[i] = NoTexture

		if src.Source == nil || *src.Source < 0 || *src.Source >= len(doc.Images) {
			log.Debug("texture has no usable image source", zap.Int("texture", i))
			continue
		}
		img := doc.Images[*src.Source]

		raw, err := imageBytes(doc, img, dir)
		if err != nil {
			log.Warn("skipping texture", zap.Int("texture", i), zap.Error(err))
			continue
		}

		name := src.Name
		if name == "" {
			name = img.Name
		}
		tex, err := decodeTexture(name, raw)
		if err != nil {
			log.Warn("skipping texture", zap.Int("texture", i), zap.Error(err))
			continue
		}

		remap[i] = len(model.Textures)
		model.Textures = append(model.Textures, tex)
	}

	return remap
}

// imageBytes returns the encoded bytes of an image from a buffer view, a
// data URI, or a file relative to the scene directory.
func imageBytes(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("image buffer view %d out of range", *img.BufferView)
		}
		raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			return nil, fmt.Errorf("read image buffer view: %w", err)
		}
		return raw, nil
	case img.IsEmbeddedResource():
		raw, err := img.MarshalData()
		if err != nil {
			return nil, fmt.Errorf("decode image data uri: %w", err)
		}
		return raw, nil
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(uri)))
		if err != nil {
			return nil, fmt.Errorf("read image file: %w", err)
		}
		return raw, nil
	default:
		return nil, errors.New("image has no data")
	}
}

// decodeTexture decodes PNG, JPEG, WebP or BMP data into raw pixels.
// Grayscale images keep one channel, opaque images three, others four.
func decodeTexture(name string, raw []byte) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch img.(type) {
	case *image.Gray, *image.Gray16:
		data := make([]byte, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			}
		}
		return NewTexture(name, w, h, 1, data)
	}

	// Straight alpha, as glTF expects
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	if !nrgba.Opaque() {
		return NewTexture(name, w, h, 4, nrgba.Pix)
	}

	data := make([]byte, 0, w*h*3)
	for i := 0; i < len(nrgba.Pix); i += 4 {
		data = append(data, nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
	}
	return NewTexture(name, w, h, 3, data)
}

// loadMaterials converts every source material. Texture references go
// through remap; references to skipped or nonexistent textures become
// NoTexture.
func (l *GLTFLoader) loadMaterials(doc *gltf.Document, remap []int, model *Model, log *zap.Logger) {
	model.Materials = make([]Material, 0, len(doc.Materials))

	resolve := func(material, ref int, slot string) int {
		if ref < 0 || ref >= len(remap) {
			log.Warn("material references missing texture",
				zap.Int("material", material), zap.String("slot", slot), zap.Int("texture", ref))
			return NoTexture
		}
		return remap[ref]
	}

	for i, src := range doc.Materials {
		mat := NewMaterial(src.Name)

		if pbr := src.PBRMetallicRoughness; pbr != nil {
			if f := pbr.BaseColorFactor; f != nil {
				if c, ok := colorFactor(*f); ok {
					mat.BaseColor = c
				} else {
					log.Warn("malformed base color factor, using white", zap.Int("material", i))
				}
			}
			if pbr.MetallicFactor != nil {
				mat.Metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				mat.Roughness = *pbr.RoughnessFactor
			}
			if pbr.BaseColorTexture != nil {
				mat.BaseColorTexture = resolve(i, pbr.BaseColorTexture.Index, "baseColor")
			}
			if pbr.MetallicRoughnessTexture != nil {
				mat.MetallicRoughnessTexture = resolve(i, pbr.MetallicRoughnessTexture.Index, "metallicRoughness")
			}
		}
		if nt := src.NormalTexture; nt != nil && nt.Index != nil {
			mat.NormalTexture = resolve(i, *nt.Index, "normal")
		}

		model.Materials = append(model.Materials, mat)
	}
}

// colorFactor validates an RGBA factor.
func colorFactor(f [4]float64) (math3d.Vec4, bool) {
	for _, c := range f {
		if math.IsNaN(c) || c < 0 || c > 1 {
			return math3d.Vec4{}, false
		}
	}
	return math3d.V4(f[0], f[1], f[2], f[3]), true
}

// loadMeshes emits one Mesh per usable primitive. Failed primitives are
// logged and skipped.
func (l *GLTFLoader) loadMeshes(doc *gltf.Document, model *Model, log *zap.Logger) {
	for mi, src := range doc.Meshes {
		name := src.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", mi)
		}

		for pi, prim := range src.Primitives {
			primName := name
			if len(src.Primitives) > 1 {
				primName = fmt.Sprintf("%s/%d", name, pi)
			}
			plog := log.With(zap.String("mesh", primName), zap.Int("primitive", pi))

			mesh, err := l.loadPrimitive(doc, model, prim, primName, plog)
			if err != nil {
				plog.Warn("skipping primitive", zap.Error(err))
				continue
			}
			model.Meshes = append(model.Meshes, mesh)
		}
	}
}

// loadPrimitive builds a Mesh from one primitive. Optional attribute
// presence is decided once here, not per vertex.
func (l *GLTFLoader) loadPrimitive(doc *gltf.Document, model *Model, prim *gltf.Primitive, name string, log *zap.Logger) (*Mesh, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredAttribute, gltf.POSITION)
	}
	posAcc, err := accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	count := len(positions)

	normIdx, hasNormals := prim.Attributes[gltf.NORMAL]
	uvIdx, hasUVs := prim.Attributes[gltf.TEXCOORD_0]
	colorIdx, hasColors := prim.Attributes[gltf.COLOR_0]

	var normals [][3]float32
	if hasNormals {
		acc, err := accessor(doc, normIdx)
		if err != nil {
			return nil, fmt.Errorf("normal: %w", err)
		}
		if normals, err = modeler.ReadNormal(doc, acc, nil); err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		if len(normals) != count {
			return nil, fmt.Errorf("normal count %d does not match position count %d", len(normals), count)
		}
	}

	var uvs [][2]float32
	if hasUVs {
		acc, err := accessor(doc, uvIdx)
		if err != nil {
			return nil, fmt.Errorf("texcoord: %w", err)
		}
		if uvs, err = modeler.ReadTextureCoord(doc, acc, nil); err != nil {
			return nil, fmt.Errorf("read texcoords: %w", err)
		}
		if len(uvs) != count {
			return nil, fmt.Errorf("texcoord count %d does not match position count %d", len(uvs), count)
		}
	}

	var colors []math3d.Vec4
	if hasColors {
		acc, err := accessor(doc, colorIdx)
		if err != nil {
			return nil, fmt.Errorf("color: %w", err)
		}
		if colors, err = readColors(doc, acc); err != nil {
			return nil, fmt.Errorf("read colors: %w", err)
		}
		if len(colors) != count {
			return nil, fmt.Errorf("color count %d does not match position count %d", len(colors), count)
		}
	}

	mesh := NewMesh(name)
	if prim.Material != nil {
		if mat := model.Material(*prim.Material); mat != nil {
			mesh.MaterialIndex = *prim.Material
		} else {
			log.Warn("primitive references missing material", zap.Int("material", *prim.Material))
		}
	}

	fallback := math3d.White()
	if mat := model.Material(mesh.MaterialIndex); mat != nil {
		fallback = mat.BaseColor
	}

	mesh.Vertices = make([]Vertex, count)
	for i, p := range positions {
		v := Vertex{
			Position: vec3(p),
			Color:    fallback,
		}
		if hasNormals {
			v.Normal = vec3(normals[i])
		}
		if hasUVs {
			v.UV = math3d.V2(float64(uvs[i][0]), float64(uvs[i][1]))
		}
		if hasColors {
			v.Color = colors[i]
		}
		mesh.Vertices[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		acc, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		if indices, err = readIndices(doc, acc); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if err := assemble(mesh, prim.Mode, indices, log); err != nil {
		return nil, err
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	if l.SmoothNormals && !hasNormals && mesh.TriangleCount() > 0 {
		mesh.CalculateSmoothNormals()
	}
	if l.DeriveEdges && len(mesh.Edges) == 0 {
		mesh.DeriveEdges()
	}

	mesh.CalculateBounds()
	return mesh, nil
}

// assemble turns an index stream into faces or edges according to the
// primitive mode. Strips, fans and loops are expanded to lists.
func assemble(mesh *Mesh, mode gltf.PrimitiveMode, indices []uint32, log *zap.Logger) error {
	switch mode {
	case gltf.PrimitiveTriangles:
		if rem := len(indices) % 3; rem != 0 {
			log.Warn("triangle list length not a multiple of 3, dropping trailing indices", zap.Int("dropped", rem))
			indices = indices[:len(indices)-rem]
		}
		mesh.Faces = append(mesh.Faces[:0], indices...)
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			// Every other triangle flips to keep the winding consistent
			if i%2 == 0 {
				mesh.AddFace(indices[i], indices[i+1], indices[i+2])
			} else {
				mesh.AddFace(indices[i+1], indices[i], indices[i+2])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			mesh.AddFace(indices[0], indices[i], indices[i+1])
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < len(indices); i += 2 {
			mesh.AddEdge(indices[i], indices[i+1])
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for i := 0; i+1 < len(indices); i++ {
			mesh.AddEdge(indices[i], indices[i+1])
		}
		if mode == gltf.PrimitiveLineLoop && len(indices) > 2 {
			mesh.AddEdge(indices[len(indices)-1], indices[0])
		}
	case gltf.PrimitivePoints:
		// Point clouds draw straight from the vertex list.
	default:
		return fmt.Errorf("unsupported primitive mode %v", mode)
	}
	return nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

// readIndices decodes an index accessor of any allowed width into uint32.
func readIndices(doc *gltf.Document, acc *gltf.Accessor) ([]uint32, error) {
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", acc.Type)
	}
	width, err := indexWidthOf(acc.ComponentType)
	if err != nil {
		return nil, err
	}

	data, err := modeler.ReadAccessor(doc, acc, nil)
	if err != nil {
		return nil, err
	}

	switch width {
	case IndexWidth8:
		if v, ok := data.([]uint8); ok {
			return widen(v), nil
		}
	case IndexWidth16:
		if v, ok := data.([]uint16); ok {
			return widen(v), nil
		}
	case IndexWidth32:
		if v, ok := data.([]uint32); ok {
			out := make([]uint32, len(v))
			copy(out, v)
			return out, nil
		}
	}
	return nil, fmt.Errorf("unexpected index data %T for width %d", data, width)
}

func widen[T uint8 | uint16](v []T) []uint32 {
	out := make([]uint32, len(v))
	for i, x := range v {
		out[i] = uint32(x)
	}
	return out
}

// readColors decodes COLOR_0 from float, normalized ubyte or normalized
// ushort data, VEC3 or VEC4. VEC3 colors get alpha 1.
func readColors(doc *gltf.Document, acc *gltf.Accessor) ([]math3d.Vec4, error) {
	data, err := modeler.ReadAccessor(doc, acc, nil)
	if err != nil {
		return nil, err
	}

	const u8, u16 = 1.0 / math.MaxUint8, 1.0 / math.MaxUint16
	var out []math3d.Vec4
	switch v := data.(type) {
	case [][4]float32:
		out = make([]math3d.Vec4, len(v))
		for i, c := range v {
			out[i] = math3d.V4(float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))
		}
	case [][3]float32:
		out = make([]math3d.Vec4, len(v))
		for i, c := range v {
			out[i] = math3d.V4(float64(c[0]), float64(c[1]), float64(c[2]), 1)
		}
	case [][4]uint8:
		out = make([]math3d.Vec4, len(v))
		for i, c := range v {
			out[i] = math3d.V4(float64(c[0])*u8, float64(c[1])*u8, float64(c[2])*u8, float64(c[3])*u8)
		}
	case [][3]uint8:
		out = make([]math3d.Vec4, len(v))
		for i, c := range v {
			out[i] = math3d.V4(float64(c[0])*u8, float64(c[1])*u8, float64(c[2])*u8, 1)
		}
	case [][4]uint16:
		out = make([]math3d.Vec4, len(v))
		for i, c := range v {
			out[i] = math3d.V4(float64(c[0])*u16, float64(c[1])*u16, float64(c[2])*u16, float64(c[3])*u16)
		}
	case [][3]uint16:
		out = make([]math3d.Vec4, len(v))
		for i, c := range v {
			out[i] = math3d.V4(float64(c[0])*u16, float64(c[1])*u16, float64(c[2])*u16, 1)
		}
	default:
		return nil, fmt.Errorf("unsupported color data %T", data)
	}
	return out, nil
}

func vec3(v [3]float32) math3d.Vec3 {
	return math3d.V3(float64(v[0]), float64(v[1]), float64(v[2]))
}
