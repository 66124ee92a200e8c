package main

import (
	"github.com/taigrr/pbrview/pkg/math3d"
	"github.com/taigrr/pbrview/pkg/models"
)

// demoModel builds the procedural scene shown by -demo: a gold cube and a
// plastic pyramid side by side.
func demoModel(deriveEdges bool) *models.Model {
	gold := models.NewMaterial("gold")
	gold.BaseColor = math3d.V4(1, 0.78, 0.34, 1)
	gold.Metallic = 1
	gold.Roughness = 0.35

	plastic := models.NewMaterial("plastic")
	plastic.Roughness = 0.6

	cube := models.NewCube(1.2)
	cube.MaterialIndex = 0
	offsetMesh(cube, math3d.V3(-0.9, 0, 0))

	pyramid := models.NewPyramid(1.2)
	pyramid.MaterialIndex = 1
	offsetMesh(pyramid, math3d.V3(0.9, 0, 0))

	if deriveEdges {
		cube.DeriveEdges()
		pyramid.DeriveEdges()
	}

	return &models.Model{
		Name:      "demo",
		Meshes:    []*models.Mesh{cube, pyramid},
		Materials: []models.Material{gold, plastic},
	}
}

func offsetMesh(m *models.Mesh, offset math3d.Vec3) {
	for i := range m.Vertices {
		m.Vertices[i].Position = m.Vertices[i].Position.Add(offset)
	}
	m.CalculateBounds()
}
