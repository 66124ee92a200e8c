package models

import (
	"errors"
	"testing"

	"github.com/taigrr/pbrview/pkg/math3d"
)

// TestMaterialDefaults verifies default material values.
func TestMaterialDefaults(t *testing.T) {
	m := NewMaterial("test")

	if m.BaseColor != math3d.V4(1, 1, 1, 1) {
		t.Errorf("Expected opaque white, got %v", m.BaseColor)
	}
	if m.Metallic != 0 {
		t.Errorf("Expected metallic=0, got %f", m.Metallic)
	}
	if m.Roughness != 0.5 {
		t.Errorf("Expected roughness=0.5, got %f", m.Roughness)
	}
	for i, ref := range m.TextureRefs() {
		if ref != NoTexture {
			t.Errorf("Texture ref %d should be -1, got %d", i, ref)
		}
	}
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name  string
		faces []uint32
		edges []uint32
		ok    bool
	}{
		{"empty", nil, nil, true},
		{"one triangle", []uint32{0, 1, 2}, nil, true},
		{"partial triangle", []uint32{0, 1}, nil, false},
		{"index out of range", []uint32{0, 1, 3}, nil, false},
		{"edges only", nil, []uint32{0, 1, 1, 2}, true},
		{"odd edge list", nil, []uint32{0, 1, 2}, false},
		{"edge out of range", nil, []uint32{0, 7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMesh(tt.name)
			for range 3 {
				m.AddVertex(Vertex{})
			}
			m.Faces = tt.faces
			m.Edges = tt.edges

			err := m.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("Validate() = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func TestDeriveEdgesCube(t *testing.T) {
	cube := NewCube(2)
	cube.DeriveEdges()

	// 12 box edges plus one diagonal per side
	if got := cube.EdgeCount(); got != 18 {
		t.Errorf("EdgeCount() = %d, want 18", got)
	}
	if err := cube.Validate(); err != nil {
		t.Errorf("Validate() after DeriveEdges: %v", err)
	}

	// Running it again must not accumulate
	cube.DeriveEdges()
	if got := cube.EdgeCount(); got != 18 {
		t.Errorf("EdgeCount() after second derive = %d, want 18", got)
	}
}

func TestCalculateSmoothNormalsPointOutward(t *testing.T) {
	for _, mesh := range []*Mesh{NewCube(1.5), NewPyramid(1.5)} {
		center := mesh.Center()
		for i, v := range mesh.Vertices {
			out := v.Position.Sub(center)
			if v.Normal.Dot(out) <= 0 {
				t.Errorf("%s vertex %d normal %v points inward", mesh.Name, i, v.Normal)
			}
		}
	}
}

func TestMeshBounds(t *testing.T) {
	m := NewPyramid(2)

	if m.BoundsMin != math3d.V3(-1, -1, -1) || m.BoundsMax != math3d.V3(1, 1, 1) {
		t.Errorf("Bounds = %v..%v, want (-1,-1,-1)..(1,1,1)", m.BoundsMin, m.BoundsMax)
	}
	if m.Size() != math3d.V3(2, 2, 2) {
		t.Errorf("Size() = %v", m.Size())
	}
	if m.Center() != math3d.Zero3() {
		t.Errorf("Center() = %v", m.Center())
	}
}

func TestMeshCloneIsIndependent(t *testing.T) {
	mesh := NewCube(1)
	mesh.DeriveEdges()
	mesh.MaterialIndex = 2

	clone := mesh.Clone()
	clone.Vertices[0].Position = math3d.V3(9, 9, 9)
	clone.Faces[0] = 7
	clone.Edges[0] = 7

	if mesh.Vertices[0].Position == clone.Vertices[0].Position {
		t.Error("Clone shares vertex storage")
	}
	if mesh.Faces[0] == 7 || mesh.Edges[0] == 7 {
		t.Error("Clone shares index storage")
	}
	if clone.MaterialIndex != 2 {
		t.Errorf("Clone MaterialIndex = %d, want 2", clone.MaterialIndex)
	}
}

func TestTextureValidate(t *testing.T) {
	tests := []struct {
		name     string
		w, h, ch int
		n        int
		ok       bool
	}{
		{"rgba", 2, 2, 4, 16, true},
		{"rgb", 3, 1, 3, 9, true},
		{"gray", 4, 4, 1, 16, true},
		{"short data", 2, 2, 4, 15, false},
		{"two channels", 2, 2, 2, 8, false},
		{"zero size", 0, 2, 4, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTexture(tt.name, tt.w, tt.h, tt.ch, make([]byte, tt.n))
			if tt.ok && err != nil {
				t.Errorf("NewTexture() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTexture) {
				t.Errorf("NewTexture() = %v, want ErrInvalidTexture", err)
			}
		})
	}
}

func TestTexturePixel(t *testing.T) {
	gray, _ := NewTexture("gray", 1, 1, 1, []byte{255})
	if got := gray.Pixel(0, 0); got != math3d.V4(1, 1, 1, 1) {
		t.Errorf("gray Pixel = %v", got)
	}

	rgb, _ := NewTexture("rgb", 2, 1, 3, []byte{0, 0, 0, 255, 0, 255})
	if got := rgb.Pixel(1, 0); got != math3d.V4(1, 0, 1, 1) {
		t.Errorf("rgb Pixel = %v", got)
	}

	rgba, _ := NewTexture("rgba", 1, 1, 4, []byte{0, 255, 0, 0})
	if got := rgba.Pixel(0, 0); got != math3d.V4(0, 1, 0, 0) {
		t.Errorf("rgba Pixel = %v", got)
	}
}

func TestModelLookupsAndValidate(t *testing.T) {
	tex, _ := NewTexture("t", 1, 1, 4, make([]byte, 4))
	mat := NewMaterial("m")
	mat.BaseColorTexture = 0

	cube := NewCube(1)
	cube.MaterialIndex = 0

	model := &Model{
		Name:      "test",
		Meshes:    []*Mesh{cube, NewPyramid(1)},
		Materials: []Material{mat},
		Textures:  []*Texture{tex},
	}

	if err := model.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if model.Material(-1) != nil || model.Material(1) != nil {
		t.Error("Material() should return nil for -1 and out-of-range")
	}
	if model.Texture(-1) != nil || model.Texture(5) != nil {
		t.Error("Texture() should return nil for -1 and out-of-range")
	}
	if got := model.TriangleCount(); got != 12+6 {
		t.Errorf("TriangleCount() = %d, want 18", got)
	}

	model.Materials[0].NormalTexture = 3
	if err := model.Validate(); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("Validate() with dangling texture = %v, want ErrInvalidGeometry", err)
	}
}
