package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taigrr/pbrview/pkg/math3d"
	"github.com/taigrr/pbrview/pkg/models"
	"github.com/taigrr/pbrview/pkg/pbr"
	"github.com/taigrr/pbrview/pkg/render"
)

// recordingBackend wraps the software backend and records which draw calls
// Scene.Draw makes.
type recordingBackend struct {
	*render.SoftwareBackend
	calls []string
	tints []math3d.Vec4
	pbr   []render.PBRParams
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{SoftwareBackend: render.NewSoftwareBackend(render.NewFramebuffer(40, 40))}
}

func (r *recordingBackend) DrawMesh(h render.MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, wireframe bool) error {
	name := "mesh"
	if wireframe {
		name = "wireframe"
	}
	r.calls = append(r.calls, name)
	r.tints = append(r.tints, tint)
	return r.SoftwareBackend.DrawMesh(h, mvp, tint, wireframe)
}

func (r *recordingBackend) DrawMeshPBR(h render.MeshHandle, params render.PBRParams) error {
	r.calls = append(r.calls, "pbr")
	r.pbr = append(r.pbr, params)
	return r.SoftwareBackend.DrawMeshPBR(h, params)
}

func (r *recordingBackend) DrawMeshEdges(h render.MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, width float64) error {
	r.calls = append(r.calls, "edges")
	r.tints = append(r.tints, tint)
	return r.SoftwareBackend.DrawMeshEdges(h, mvp, tint, width)
}

func (r *recordingBackend) DrawMeshPoints(h render.MeshHandle, mvp math3d.Mat4, tint math3d.Vec4, size float64) error {
	r.calls = append(r.calls, "points")
	r.tints = append(r.tints, tint)
	return r.SoftwareBackend.DrawMeshPoints(h, mvp, tint, size)
}

func (r *recordingBackend) reset() {
	r.calls, r.tints, r.pbr = nil, nil, nil
}

func singleMeshModel(mesh *models.Mesh) *models.Model {
	mesh.CalculateBounds()
	return &models.Model{Name: "test", Meshes: []*models.Mesh{mesh}}
}

func pointCloud() *models.Mesh {
	m := models.NewMesh("cloud")
	m.AddVertex(models.Vertex{Position: math3d.V3(-1, 0, 0), Color: math3d.White()})
	m.AddVertex(models.Vertex{Position: math3d.V3(1, 0, 0), Color: math3d.White()})
	return m
}

func drawScene(t *testing.T, s *Scene, opt DrawOptions) {
	t.Helper()
	cam := render.NewCamera()
	cam.SetAspectRatio(1)
	err := s.Draw(math3d.Identity(), cam.ViewMatrix(), cam.ProjectionMatrix(), cam.Position,
		pbr.Light{Position: math3d.V3(0, 0, 5), Color: math3d.V3(20, 20, 20), Intensity: 1}, opt)
	require.NoError(t, err)
}

func TestUploadSceneDemo(t *testing.T) {
	b := render.NewSoftwareBackend(render.NewFramebuffer(40, 40))

	s, err := UploadScene(b, demoModel(true), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, s.MeshCount())
	assert.Equal(t, 2, b.MeshCount())

	require.NoError(t, s.Free())
	assert.Equal(t, 0, b.MeshCount())
	assert.Equal(t, 0, s.MeshCount())

	// Second free has nothing left to release
	assert.NoError(t, s.Free())
}

func TestUploadSceneMaterials(t *testing.T) {
	b := newRecordingBackend()
	s, err := UploadScene(b, demoModel(false), zap.NewNop())
	require.NoError(t, err)
	defer s.Free()

	drawScene(t, s, DrawOptions{PBR: true, Textures: true})

	require.Len(t, b.pbr, 2)
	assert.Equal(t, 1.0, b.pbr[0].Metallic)
	assert.Equal(t, 0.35, b.pbr[0].Roughness)
	assert.Equal(t, 0.0, b.pbr[1].Metallic)
	assert.Equal(t, 0.6, b.pbr[1].Roughness)
}

func TestUploadSceneSkipsBadTexture(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := render.NewSoftwareBackend(render.NewFramebuffer(40, 40))

	good, err := models.NewTexture("good", 1, 1, 3, []byte{255, 0, 0})
	require.NoError(t, err)
	bad := &models.Texture{Name: "bad", Width: 2, Height: 2, Channels: 3, Data: []byte{1}}

	model := singleMeshModel(models.NewCube(1))
	model.Textures = []*models.Texture{bad, good}

	s, err := UploadScene(b, model, zap.New(core))
	require.NoError(t, err)
	defer s.Free()

	require.Len(t, s.textures, 2)
	assert.False(t, s.textures[0].IsValid())
	assert.True(t, s.textures[1].IsValid())
	assert.Equal(t, 1, b.TextureCount())
	assert.Equal(t, 1, logs.FilterMessage("texture skipped").Len())
}

func TestUploadSceneNoDrawableMeshes(t *testing.T) {
	b := render.NewSoftwareBackend(render.NewFramebuffer(40, 40))
	tex, err := models.NewTexture("t", 1, 1, 1, []byte{9})
	require.NoError(t, err)

	model := &models.Model{
		Meshes:   []*models.Mesh{models.NewMesh("empty")},
		Textures: []*models.Texture{tex},
	}

	_, err = UploadScene(b, model, zap.NewNop())
	assert.Error(t, err)
	assert.Equal(t, 0, b.TextureCount(), "textures must be released on failure")
}

func TestNormalizeTransform(t *testing.T) {
	mesh := models.NewMesh("box")
	mesh.AddVertex(models.Vertex{Position: math3d.V3(2, 2, 2)})
	mesh.AddVertex(models.Vertex{Position: math3d.V3(6, 6, 6)})
	m := normalizeTransform(singleMeshModel(mesh))

	center := m.MulVec3(math3d.V3(4, 4, 4))
	assert.InDelta(t, 0, center.Len(), 1e-9)

	corner := m.MulVec3(math3d.V3(6, 6, 6))
	assert.InDelta(t, 1, corner.Len(), 1e-9)
}

func TestSceneDrawModes(t *testing.T) {
	b := newRecordingBackend()
	cube := models.NewCube(1)
	cube.DeriveEdges()
	s, err := UploadScene(b, singleMeshModel(cube), zap.NewNop())
	require.NoError(t, err)
	defer s.Free()

	tests := []struct {
		name  string
		opt   DrawOptions
		calls []string
	}{
		{"pbr", DrawOptions{PBR: true}, []string{"pbr"}},
		{"unlit", DrawOptions{}, []string{"mesh"}},
		{"wireframe wins", DrawOptions{PBR: true, Wireframe: true}, []string{"wireframe"}},
		{"overlays", DrawOptions{PBR: true, Edges: true, Points: true, EdgeWidth: 1, PointSize: 2}, []string{"pbr", "edges", "points"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.reset()
			drawScene(t, s, tt.opt)
			assert.Equal(t, tt.calls, b.calls)
		})
	}
}

func TestSceneDrawTexturesToggle(t *testing.T) {
	b := newRecordingBackend()
	tex, err := models.NewTexture("t", 1, 1, 3, []byte{255, 0, 0})
	require.NoError(t, err)

	mat := models.NewMaterial("m")
	mat.BaseColorTexture = 0
	cube := models.NewCube(1)
	cube.MaterialIndex = 0
	model := singleMeshModel(cube)
	model.Materials = []models.Material{mat}
	model.Textures = []*models.Texture{tex}

	s, err := UploadScene(b, model, zap.NewNop())
	require.NoError(t, err)
	defer s.Free()

	drawScene(t, s, DrawOptions{PBR: true, Textures: true})
	require.Len(t, b.pbr, 1)
	assert.True(t, b.pbr[0].BaseColorTexture.IsValid())

	b.reset()
	drawScene(t, s, DrawOptions{PBR: true})
	require.Len(t, b.pbr, 1)
	assert.False(t, b.pbr[0].BaseColorTexture.IsValid())
}

func TestSceneDrawFallbacks(t *testing.T) {
	b := newRecordingBackend()

	lines := pointCloud()
	lines.AddEdge(0, 1)
	model := &models.Model{Meshes: []*models.Mesh{lines, pointCloud()}}
	for _, m := range model.Meshes {
		m.CalculateBounds()
	}

	s, err := UploadScene(b, model, zap.NewNop())
	require.NoError(t, err)
	defer s.Free()

	drawScene(t, s, DrawOptions{PBR: true})
	assert.Equal(t, []string{"edges", "points"}, b.calls)
	assert.Equal(t, []math3d.Vec4{math3d.White(), math3d.White()}, b.tints)

	// Asked-for overlays keep their tint
	b.reset()
	drawScene(t, s, DrawOptions{Edges: true, Points: true})
	assert.Equal(t, []string{"edges", "points", "points"}, b.calls)
	assert.Equal(t, edgeTint, b.tints[0])
	assert.Equal(t, pointTint, b.tints[1])
	assert.Equal(t, pointTint, b.tints[2])
}

func TestSceneDrawAfterFree(t *testing.T) {
	b := render.NewSoftwareBackend(render.NewFramebuffer(40, 40))
	s, err := UploadScene(b, demoModel(false), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Free())

	// Nothing left to draw
	drawScene(t, s, DrawOptions{PBR: true})
}
