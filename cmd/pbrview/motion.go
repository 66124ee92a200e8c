package main

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/pbrview/internal/config"
	"github.com/taigrr/pbrview/pkg/math3d"
	"github.com/taigrr/pbrview/pkg/render"
)

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis with harmonica spring for smooth velocity decay
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0 using spring
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds the model's drag rotation with harmonica spring physics
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	return &RotationState{
		Pitch: NewRotationAxis(fps),
		Yaw:   NewRotationAxis(fps),
		Roll:  NewRotationAxis(fps),
		fps:   fps,
	}
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// Matrix returns the model rotation.
func (r *RotationState) Matrix() math3d.Mat4 {
	return math3d.RotateX(r.Pitch.Position).
		Mul(math3d.RotateY(r.Yaw.Position)).
		Mul(math3d.RotateZ(r.Roll.Position))
}

// Zoom limits, in model radii
const (
	minDistance = 1.2
	maxDistance = 20
)

// Orbit is the camera's place on a circle around the model. Distance eases
// toward its target on a spring so zooming is smooth.
type Orbit struct {
	Distance float64
	Angle    float64 // Radians around +Y from +Z
	Height   float64

	target  float64
	vel     float64
	spring  harmonica.Spring
	initial config.CameraConfig
}

// NewOrbit places the camera as configured.
func NewOrbit(cfg config.CameraConfig, fps int) *Orbit {
	o := &Orbit{
		spring:  harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
		initial: cfg,
	}
	o.Reset()
	return o
}

// Reset returns to the configured placement immediately.
func (o *Orbit) Reset() {
	o.Distance = o.initial.Distance
	o.target = o.initial.Distance
	o.vel = 0
	o.Angle = o.initial.Angle * math.Pi / 180
	o.Height = o.initial.Height
}

// Zoom scales the target distance, clamped to the zoom limits.
func (o *Orbit) Zoom(factor float64) {
	o.target = math.Max(minDistance, math.Min(maxDistance, o.target*factor))
}

// Target returns the distance the camera is easing toward.
func (o *Orbit) Target() float64 {
	return o.target
}

// Update advances the zoom spring by one frame.
func (o *Orbit) Update() {
	o.Distance, o.vel = o.spring.Update(o.Distance, o.vel, o.target)
}

// Apply moves cam to the orbit position, looking at the origin.
func (o *Orbit) Apply(cam *render.Camera) {
	cam.Orbit(math3d.Zero3(), o.Distance, o.Angle, o.Height)
}
