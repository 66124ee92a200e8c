package models

import (
	"fmt"

	"github.com/taigrr/pbrview/pkg/math3d"
)

// Model is the result of loading one scene file. It is not modified after
// the loader returns it.
type Model struct {
	Name      string
	Meshes    []*Mesh
	Materials []Material
	Textures  []*Texture
}

// Material returns the material at index i, or nil for -1 or out of range.
func (m *Model) Material(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// Texture returns the texture at index i, or nil for -1 or out of range.
func (m *Model) Texture(i int) *Texture {
	if i < 0 || i >= len(m.Textures) {
		return nil
	}
	return m.Textures[i]
}

// TriangleCount sums the triangles of every mesh.
func (m *Model) TriangleCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += mesh.TriangleCount()
	}
	return n
}

// VertexCount sums the vertices of every mesh.
func (m *Model) VertexCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += mesh.VertexCount()
	}
	return n
}

// Bounds returns the box enclosing every mesh's bounds.
func (m *Model) Bounds() (lo, hi math3d.Vec3) {
	for i, mesh := range m.Meshes {
		if i == 0 {
			lo, hi = mesh.BoundsMin, mesh.BoundsMax
			continue
		}
		lo = lo.Min(mesh.BoundsMin)
		hi = hi.Max(mesh.BoundsMax)
	}
	return lo, hi
}

// Validate checks every mesh and texture, and that every material and
// texture reference is either -1 or in range.
func (m *Model) Validate() error {
	for i := range m.Textures {
		if err := m.Textures[i].Validate(); err != nil {
			return err
		}
	}
	for i := range m.Materials {
		for _, ref := range m.Materials[i].TextureRefs() {
			if ref != NoTexture && m.Texture(ref) == nil {
				return fmt.Errorf("%w: material %d references texture %d of %d", ErrInvalidGeometry, i, ref, len(m.Textures))
			}
		}
	}
	for _, mesh := range m.Meshes {
		if err := mesh.Validate(); err != nil {
			return err
		}
		if mesh.MaterialIndex != -1 && m.Material(mesh.MaterialIndex) == nil {
			return fmt.Errorf("%w: mesh %q references material %d of %d", ErrInvalidGeometry, mesh.Name, mesh.MaterialIndex, len(m.Materials))
		}
	}
	return nil
}
