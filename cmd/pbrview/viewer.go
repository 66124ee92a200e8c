package main

import (
	"fmt"
	"math"
	"math/rand"

	uv "github.com/charmbracelet/ultraviolet"
	"go.uber.org/zap"

	"github.com/taigrr/pbrview/internal/config"
	"github.com/taigrr/pbrview/pkg/math3d"
	"github.com/taigrr/pbrview/pkg/models"
	"github.com/taigrr/pbrview/pkg/pbr"
	"github.com/taigrr/pbrview/pkg/render"
)

const (
	torqueStrength = 3.0
	lightOrbitRate = 0.6 // Radians per second
	zoomStep       = 0.9
)

// action is what a key press asks the viewer to do.
type action int

const (
	actNone action = iota
	actQuit
	actReset
	actSpin
	actZoomIn
	actZoomOut
	actPitchUp
	actPitchDown
	actYawLeft
	actYawRight
	actWireframe
	actEdges
	actPoints
	actTextures
	actPBR
	actLightOrbit
	actAutoRotate
	actGrid
	actAxes
	actHUD
)

// keyAction maps a key press to an action.
func keyAction(ev uv.KeyPressEvent) action {
	switch {
	case ev.MatchString("escape", "ctrl+c"):
		return actQuit
	case ev.MatchString("r"):
		return actReset
	case ev.MatchString("space"):
		return actSpin
	case ev.MatchString("+", "="):
		return actZoomIn
	case ev.MatchString("-", "_"):
		return actZoomOut
	case ev.MatchString("w", "up"):
		return actPitchUp
	case ev.MatchString("s", "down"):
		return actPitchDown
	case ev.MatchString("a", "left"):
		return actYawLeft
	case ev.MatchString("d", "right"):
		return actYawRight
	case ev.MatchString("x"):
		return actWireframe
	case ev.MatchString("e"):
		return actEdges
	case ev.MatchString("p"):
		return actPoints
	case ev.MatchString("t"):
		return actTextures
	case ev.MatchString("m"):
		return actPBR
	case ev.MatchString("l"):
		return actLightOrbit
	case ev.MatchString("o"):
		return actAutoRotate
	case ev.MatchString("g"):
		return actGrid
	case ev.MatchString("c"):
		return actAxes
	case ev.MatchString("?", "shift+/"):
		return actHUD
	}
	return actNone
}

// viewer owns everything one frame needs. It does not touch the terminal,
// so snapshot mode and tests drive it directly.
type viewer struct {
	cfg      *config.Config
	backend  *render.SoftwareBackend
	scene    *Scene
	camera   *render.Camera
	helpers  *render.Wireframe
	rotation *RotationState
	orbit    *Orbit
	view     *ViewState
	log      *zap.Logger

	torque  struct{ pitch, yaw float64 }
	spin    float64 // Auto-rotation, radians about +Y
	elapsed float64 // Seconds since start, drives the light orbit
}

func newViewer(cfg *config.Config, model *models.Model, fb *render.Framebuffer, log *zap.Logger) (*viewer, error) {
	backend := render.NewSoftwareBackend(fb,
		render.WithLogger(log.Named("backend")),
		render.WithFilterMode(render.ParseFilterMode(cfg.Render.TextureFilter)),
		render.WithBackfaceCulling(cfg.Render.BackfaceCulling),
	)

	scene, err := UploadScene(backend, model, log)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", model.Name, err)
	}

	camera := render.NewCamera()
	camera.SetFOV(cfg.Camera.FOV * math.Pi / 180)
	camera.SetClipPlanes(cfg.Camera.Near, cfg.Camera.Far)

	v := &viewer{
		cfg:      cfg,
		backend:  backend,
		scene:    scene,
		camera:   camera,
		rotation: NewRotationState(cfg.Render.FPS),
		orbit:    NewOrbit(cfg.Camera, cfg.Render.FPS),
		view:     NewViewState(cfg),
		log:      log,
	}
	v.resize(fb)
	return v, nil
}

// resize points the viewer at a new framebuffer.
func (v *viewer) resize(fb *render.Framebuffer) {
	v.backend.SetFramebuffer(fb)
	v.helpers = render.NewWireframe(v.camera, fb)
	if fb.Height > 0 {
		v.camera.SetAspectRatio(float64(fb.Width) / float64(fb.Height))
	}
}

// light returns the point light for the current frame.
func (v *viewer) light() pbr.Light {
	lc := v.cfg.Light
	pos := math3d.V3(lc.Position[0], lc.Position[1], lc.Position[2])
	if v.view.LightOrbit {
		pos = math3d.RotateY(v.elapsed * lightOrbitRate).MulVec3(pos)
	}
	return pbr.Light{
		Position:  pos,
		Color:     math3d.V3(lc.Color[0], lc.Color[1], lc.Color[2]),
		Intensity: lc.Intensity,
	}
}

// modelMatrix combines auto-rotation with the user's drag rotation.
func (v *viewer) modelMatrix() math3d.Mat4 {
	return math3d.RotateY(v.spin).Mul(v.rotation.Matrix())
}

// update advances the simulation by dt seconds.
func (v *viewer) update(dt float64) {
	// Key release events are unreliable, so torque decays on its own
	v.rotation.ApplyImpulse(v.torque.pitch*dt, v.torque.yaw*dt, 0)
	v.torque.pitch *= 0.9
	v.torque.yaw *= 0.9

	v.rotation.Update()
	v.orbit.Update()

	if v.view.AutoRotate {
		v.spin = math.Mod(v.spin+v.cfg.View.RotateSpeed*math.Pi/180*dt, 2*math.Pi)
	}
	v.elapsed += dt
}

// apply performs a key action and reports whether the viewer should quit.
func (v *viewer) apply(a action) bool {
	switch a {
	case actQuit:
		return true
	case actReset:
		v.rotation.Reset()
		v.orbit.Reset()
		v.spin = 0
	case actSpin:
		v.rotation.ApplyImpulse(
			(rand.Float64()-0.5)*1.5,
			(rand.Float64()-0.5)*1.5,
			(rand.Float64()-0.5)*1.5,
		)
	case actZoomIn:
		v.orbit.Zoom(zoomStep)
	case actZoomOut:
		v.orbit.Zoom(1 / zoomStep)
	case actPitchUp:
		v.torque.pitch = -torqueStrength
	case actPitchDown:
		v.torque.pitch = torqueStrength
	case actYawLeft:
		v.torque.yaw = -torqueStrength
	case actYawRight:
		v.torque.yaw = torqueStrength
	case actWireframe:
		v.view.Wireframe = !v.view.Wireframe
	case actEdges:
		v.view.Edges = !v.view.Edges
	case actPoints:
		v.view.Points = !v.view.Points
	case actTextures:
		v.view.Textures = !v.view.Textures
	case actPBR:
		v.view.PBR = !v.view.PBR
	case actLightOrbit:
		v.view.LightOrbit = !v.view.LightOrbit
	case actAutoRotate:
		v.view.AutoRotate = !v.view.AutoRotate
	case actGrid:
		v.view.Grid = !v.view.Grid
	case actAxes:
		v.view.Axes = !v.view.Axes
	case actHUD:
		v.view.ShowHUD = !v.view.ShowHUD
	}
	return false
}

// release stops the torque a held key was applying.
func (v *viewer) release(ev uv.KeyReleaseEvent) {
	switch {
	case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
		v.torque.pitch = 0
	case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
		v.torque.yaw = 0
	}
}

// render draws one frame into the framebuffer.
func (v *viewer) render() error {
	bg := v.cfg.Render.Background
	v.backend.BeginFrame(render.RGB(uint8(bg[0]), uint8(bg[1]), uint8(bg[2])))

	v.orbit.Apply(v.camera)

	if v.view.Grid {
		v.helpers.DrawGrid(4, 0.5, -1, render.ColorGrid)
	}

	light := v.light()
	err := v.scene.Draw(
		v.modelMatrix(),
		v.camera.ViewMatrix(),
		v.camera.ProjectionMatrix(),
		v.camera.Position,
		light,
		v.view.DrawOptions(v.cfg.View),
	)
	if err != nil {
		return err
	}

	if v.view.Axes {
		v.helpers.DrawAxes(1.2)
	}
	if v.view.PBR {
		v.helpers.DrawLight(light.Position, render.ColorYellow)
	}
	return nil
}

// stats returns the culling counters of the last frame.
func (v *viewer) stats() render.CullingStats {
	return v.backend.Rasterizer().CullingStats
}

// close releases every uploaded resource.
func (v *viewer) close() error {
	return v.scene.Free()
}
