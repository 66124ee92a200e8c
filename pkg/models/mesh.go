// Package models holds the CPU-side scene data produced by the glTF loader:
// meshes, materials, textures and the model that owns them.
package models

import (
	"errors"
	"fmt"

	"github.com/taigrr/pbrview/pkg/math3d"
)

// ErrInvalidGeometry is returned by Validate when a mesh breaks one of its
// structural invariants.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Vertex holds all per-vertex attributes. Attributes the source did not
// provide are left zero, except Color which falls back to the material's
// base color.
type Vertex struct {
	Position math3d.Vec3
	Color    math3d.Vec4 // RGBA in 0-1 range
	Normal   math3d.Vec3
	UV       math3d.Vec2
}

// Mesh is one drawable primitive: a vertex list plus a triangle index list
// and an optional line index list, all indexing into Vertices.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Faces    []uint32 // Triangle list, three indices per face
	Edges    []uint32 // Line list, two indices per edge

	// Index into Model.Materials, -1 for none.
	MaterialIndex int

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// NewMesh creates an empty mesh with no material.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:          name,
		Vertices:      make([]Vertex, 0),
		Faces:         make([]uint32, 0),
		MaterialIndex: -1,
	}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v Vertex) uint32 {
	m.Vertices = append(m.Vertices, v)
	return uint32(len(m.Vertices) - 1)
}

// AddFace appends a triangle.
func (m *Mesh) AddFace(i0, i1, i2 uint32) {
	m.Faces = append(m.Faces, i0, i1, i2)
}

// AddEdge appends a line segment.
func (m *Mesh) AddEdge(i0, i1 uint32) {
	m.Edges = append(m.Edges, i0, i1)
}

// Validate checks that the face list is a whole number of triangles, the
// edge list a whole number of pairs, and that every index is in range.
func (m *Mesh) Validate() error {
	if len(m.Faces)%3 != 0 {
		return fmt.Errorf("%w: mesh %q has %d face indices, not a multiple of 3", ErrInvalidGeometry, m.Name, len(m.Faces))
	}
	if len(m.Edges)%2 != 0 {
		return fmt.Errorf("%w: mesh %q has %d edge indices, not a multiple of 2", ErrInvalidGeometry, m.Name, len(m.Edges))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Faces {
		if idx >= n {
			return fmt.Errorf("%w: mesh %q face index %d = %d out of range [0,%d)", ErrInvalidGeometry, m.Name, i, idx, n)
		}
	}
	for i, idx := range m.Edges {
		if idx >= n {
			return fmt.Errorf("%w: mesh %q edge index %d = %d out of range [0,%d)", ErrInvalidGeometry, m.Name, i, idx, n)
		}
	}
	return nil
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces) / 3
}

// EdgeCount returns the number of line segments.
func (m *Mesh) EdgeCount() int {
	return len(m.Edges) / 2
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Face returns the vertex indices of triangle i.
func (m *Mesh) Face(i int) [3]uint32 {
	return [3]uint32{m.Faces[i*3], m.Faces[i*3+1], m.Faces[i*3+2]}
}

// CalculateSmoothNormals replaces vertex normals with area-weighted averages
// of the adjacent face normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for f := range m.TriangleCount() {
		face := m.Face(f)
		v0 := m.Vertices[face[0]].Position
		v1 := m.Vertices[face[1]].Position
		v2 := m.Vertices[face[2]].Position

		// Unnormalized, so larger faces weigh more
		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		for _, idx := range face {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// HasNormals reports whether any vertex carries a non-zero normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.LenSq() > 1e-6 {
			return true
		}
	}
	return false
}

// DeriveEdges replaces Edges with the unique edges of the triangle list,
// in first-seen order.
func (m *Mesh) DeriveEdges() {
	type key struct{ a, b uint32 }
	seen := make(map[key]struct{}, len(m.Faces))
	m.Edges = m.Edges[:0]

	for f := range m.TriangleCount() {
		face := m.Face(f)
		for k := range 3 {
			a, b := face[k], face[(k+1)%3]
			e := key{min(a, b), max(a, b)}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			m.AddEdge(a, b)
		}
	}
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:          m.Name,
		Vertices:      make([]Vertex, len(m.Vertices)),
		Faces:         make([]uint32, len(m.Faces)),
		MaterialIndex: m.MaterialIndex,
		BoundsMin:     m.BoundsMin,
		BoundsMax:     m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	if m.Edges != nil {
		clone.Edges = make([]uint32, len(m.Edges))
		copy(clone.Edges, m.Edges)
	}
	return clone
}
