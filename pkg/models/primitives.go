package models

import "github.com/taigrr/pbrview/pkg/math3d"

// NewCube builds a cube centered at the origin with a distinct color at each
// corner. Faces wind counter-clockwise seen from outside.
func NewCube(size float64) *Mesh {
	h := size / 2
	m := NewMesh("cube")

	corners := []struct {
		pos   math3d.Vec3
		color math3d.Vec4
	}{
		{math3d.V3(-h, -h, -h), math3d.V4(1, 0, 0, 1)},
		{math3d.V3(h, -h, -h), math3d.V4(0, 1, 0, 1)},
		{math3d.V3(h, h, -h), math3d.V4(0, 0, 1, 1)},
		{math3d.V3(-h, h, -h), math3d.V4(1, 1, 0, 1)},
		{math3d.V3(-h, -h, h), math3d.V4(1, 0, 1, 1)},
		{math3d.V3(h, -h, h), math3d.V4(0, 1, 1, 1)},
		{math3d.V3(h, h, h), math3d.V4(1, 1, 1, 1)},
		{math3d.V3(-h, h, h), math3d.V4(0.5, 0.5, 0.5, 1)},
	}
	for _, c := range corners {
		m.AddVertex(Vertex{Position: c.pos, Color: c.color})
	}

	m.AddFace(0, 3, 2) // -Z
	m.AddFace(0, 2, 1)
	m.AddFace(4, 5, 6) // +Z
	m.AddFace(4, 6, 7)
	m.AddFace(3, 7, 6) // +Y
	m.AddFace(3, 6, 2)
	m.AddFace(0, 1, 5) // -Y
	m.AddFace(0, 5, 4)
	m.AddFace(1, 2, 6) // +X
	m.AddFace(1, 6, 5)
	m.AddFace(4, 7, 3) // -X
	m.AddFace(4, 3, 0)

	m.CalculateSmoothNormals()
	m.CalculateBounds()
	return m
}

// NewPyramid builds a square pyramid with its apex on +Y.
func NewPyramid(size float64) *Mesh {
	h := size / 2
	m := NewMesh("pyramid")

	m.AddVertex(Vertex{Position: math3d.V3(-h, -h, -h), Color: math3d.V4(1, 0, 0, 1)})
	m.AddVertex(Vertex{Position: math3d.V3(h, -h, -h), Color: math3d.V4(0, 1, 0, 1)})
	m.AddVertex(Vertex{Position: math3d.V3(h, -h, h), Color: math3d.V4(0, 0, 1, 1)})
	m.AddVertex(Vertex{Position: math3d.V3(-h, -h, h), Color: math3d.V4(1, 1, 0, 1)})
	m.AddVertex(Vertex{Position: math3d.V3(0, h, 0), Color: math3d.V4(1, 0, 1, 1)})

	m.AddFace(0, 1, 2) // base
	m.AddFace(0, 2, 3)
	m.AddFace(0, 4, 1)
	m.AddFace(1, 4, 2)
	m.AddFace(2, 4, 3)
	m.AddFace(3, 4, 0)

	m.CalculateSmoothNormals()
	m.CalculateBounds()
	return m
}
