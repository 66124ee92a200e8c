package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taigrr/pbrview/pkg/math3d"
	"github.com/taigrr/pbrview/pkg/models"
	"github.com/taigrr/pbrview/pkg/pbr"
	"github.com/taigrr/pbrview/pkg/render"
)

// Overlay tints
var (
	wireframeTint = math3d.V4(0, 1, 0.5, 1)
	edgeTint      = math3d.V4(0, 1, 1, 1)
	pointTint     = math3d.V4(1, 1, 0, 1)
)

type sceneMesh struct {
	name   string
	handle render.MeshHandle
	params render.PBRParams // Material part only; matrices are set per frame
}

// Scene is a loaded model after upload: one mesh handle per primitive, the
// texture handles its materials refer to, and a transform that centers the
// model and scales it to a unit sphere.
type Scene struct {
	backend   render.Backend
	meshes    []sceneMesh
	textures  []render.TextureHandle
	Normalize math3d.Mat4
	log       *zap.Logger
}

// DrawOptions selects what Scene.Draw puts on screen.
type DrawOptions struct {
	PBR       bool
	Textures  bool
	Wireframe bool
	Edges     bool
	Points    bool
	EdgeWidth float64
	PointSize float64
}

// UploadScene uploads every texture and mesh of model. Textures or meshes the
// backend rejects are skipped with a warning; materials pointing at a
// skipped texture draw without it.
func UploadScene(backend render.Backend, model *models.Model, log *zap.Logger) (*Scene, error) {
	s := &Scene{
		backend:   backend,
		textures:  make([]render.TextureHandle, len(model.Textures)),
		Normalize: normalizeTransform(model),
		log:       log,
	}

	for i, tex := range model.Textures {
		h, err := backend.UploadTexture(tex)
		if err != nil {
			log.Warn("texture skipped", zap.Int("texture", i), zap.Error(err))
			continue
		}
		s.textures[i] = h
	}

	for _, mesh := range model.Meshes {
		h, err := backend.UploadMesh(mesh)
		if errors.Is(err, render.ErrEmptyMesh) {
			log.Warn("mesh skipped", zap.String("mesh", mesh.Name), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("upload %s: %w", mesh.Name, err), s.Free())
		}

		var params render.PBRParams
		params.SetMaterial(model.Material(mesh.MaterialIndex), s.textures)
		s.meshes = append(s.meshes, sceneMesh{name: mesh.Name, handle: h, params: params})
	}

	if len(s.meshes) == 0 {
		return nil, errors.Join(errors.New("no drawable meshes"), s.Free())
	}

	log.Info("scene uploaded", zap.Int("meshes", len(s.meshes)), zap.Int("textures", len(s.textures)))
	return s, nil
}

// normalizeTransform maps the model's bounding box into a unit sphere at the
// origin.
func normalizeTransform(model *models.Model) math3d.Mat4 {
	box := render.NewAABB(model.Bounds())
	center := box.Center()
	radius := box.Radius()
	if radius < 1e-9 {
		radius = 1
	}
	return math3d.ScaleUniform(1 / radius).Mul(math3d.Translate(center.Negate()))
}

// Draw draws every mesh with the model transform applied on top of
// Normalize. Meshes without triangles always show their lines, or their
// points when they have no lines either, in white unless that overlay was
// asked for.
func (s *Scene) Draw(model, view, projection math3d.Mat4, eye math3d.Vec3, light pbr.Light, opt DrawOptions) error {
	world := model.Mul(s.Normalize)
	mvp := projection.Mul(view).Mul(world)

	for i := range s.meshes {
		m := &s.meshes[i]
		h := m.handle

		var err error
		switch {
		case !h.HasTriangles():
		case opt.Wireframe:
			err = s.backend.DrawMesh(h, mvp, wireframeTint, true)
		case opt.PBR:
			p := m.params
			p.Model, p.View, p.Projection = world, view, projection
			p.CameraPos = eye
			p.Light = light
			if !opt.Textures {
				p.BaseColorTexture = render.TextureHandle{}
				p.MetallicRoughnessTexture = render.TextureHandle{}
				p.NormalTexture = render.TextureHandle{}
			}
			err = s.backend.DrawMeshPBR(h, p)
		default:
			err = s.backend.DrawMesh(h, mvp, math3d.White(), false)
		}
		if err != nil {
			return fmt.Errorf("draw %s: %w", m.name, err)
		}

		if h.HasEdges() && (opt.Edges || !h.HasTriangles()) {
			tint := edgeTint
			if !opt.Edges {
				tint = math3d.White()
			}
			if err := s.backend.DrawMeshEdges(h, mvp, tint, opt.EdgeWidth); err != nil {
				return fmt.Errorf("draw %s edges: %w", m.name, err)
			}
		}

		if h.HasPoints() && (opt.Points || (!h.HasTriangles() && !h.HasEdges())) {
			tint := pointTint
			if !opt.Points {
				tint = math3d.White()
			}
			if err := s.backend.DrawMeshPoints(h, mvp, tint, opt.PointSize); err != nil {
				return fmt.Errorf("draw %s points: %w", m.name, err)
			}
		}
	}
	return nil
}

// MeshCount returns the number of uploaded meshes.
func (s *Scene) MeshCount() int {
	return len(s.meshes)
}

// Free releases every handle exactly once. Calling it again is a no-op.
func (s *Scene) Free() error {
	var errs []error
	for i := range s.meshes {
		if err := s.backend.FreeMesh(&s.meshes[i].handle); err != nil {
			errs = append(errs, err)
		}
	}
	for i := range s.textures {
		if !s.textures[i].IsValid() {
			continue
		}
		if err := s.backend.FreeTexture(&s.textures[i]); err != nil {
			errs = append(errs, err)
		}
	}
	s.meshes, s.textures = nil, nil

	if err := errors.Join(errs...); err != nil {
		s.log.Error("freeing scene", zap.Error(err))
		return err
	}
	return nil
}
