// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all viewer settings.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Camera  CameraConfig  `yaml:"camera"`
	Light   LightConfig   `yaml:"light"`
	View    ViewConfig    `yaml:"view"`
	Logging LoggingConfig `yaml:"logging"`
}

// RenderConfig holds frame and rasterizer settings.
type RenderConfig struct {
	FPS             int    `yaml:"fps"`
	Background      [3]int `yaml:"background"`       // RGB, 0-255
	BackfaceCulling bool   `yaml:"backface_culling"` // Skip triangles facing away
	TextureFilter   string `yaml:"texture_filter"`   // nearest or bilinear
	SnapshotWidth   int    `yaml:"snapshot_width"`
	SnapshotHeight  int    `yaml:"snapshot_height"`
}

// CameraConfig holds the orbit camera. The model is scaled to fit a unit
// sphere, so distances are in model radii.
type CameraConfig struct {
	FOV      float64 `yaml:"fov"`      // Vertical, degrees
	Distance float64 `yaml:"distance"` // From the model center
	Angle    float64 `yaml:"angle"`    // Around +Y from +Z, degrees
	Height   float64 `yaml:"height"`
	Near     float64 `yaml:"near"`
	Far      float64 `yaml:"far"`
}

// LightConfig holds the single point light.
type LightConfig struct {
	Position  [3]float64 `yaml:"position"`
	Color     [3]float64 `yaml:"color"` // Linear RGB, may exceed 1
	Intensity float64    `yaml:"intensity"`
	Orbit     bool       `yaml:"orbit"` // Circle the model over time
}

// ViewConfig holds what is drawn and how the model moves.
type ViewConfig struct {
	AutoRotate       bool    `yaml:"auto_rotate"`
	RotateSpeed      float64 `yaml:"rotate_speed"` // Degrees per second
	PBR              bool    `yaml:"pbr"`          // false draws unlit vertex colors
	Textures         bool    `yaml:"textures"`
	Wireframe        bool    `yaml:"wireframe"`
	Edges            bool    `yaml:"edges"`
	EdgeWidth        float64 `yaml:"edge_width"`
	Points           bool    `yaml:"points"`
	PointSize        float64 `yaml:"point_size"`
	DeriveEdges      bool    `yaml:"derive_edges"`      // Build edges from triangles when a mesh has none
	RecomputeNormals bool    `yaml:"recompute_normals"` // Replace loaded normals with smooth ones
	Grid             bool    `yaml:"grid"`
	Axes             bool    `yaml:"axes"`
	HUD              bool    `yaml:"hud"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			FPS:             30,
			Background:      [3]int{30, 30, 40},
			BackfaceCulling: true,
			TextureFilter:   "bilinear",
			SnapshotWidth:   320,
			SnapshotHeight:  240,
		},
		Camera: CameraConfig{
			FOV:      60,
			Distance: 3,
			Angle:    30,
			Height:   0.8,
			Near:     0.05,
			Far:      100,
		},
		Light: LightConfig{
			Position:  [3]float64{2, 3, 3},
			Color:     [3]float64{30, 30, 30},
			Intensity: 1,
		},
		View: ViewConfig{
			AutoRotate:  true,
			RotateSpeed: 30,
			PBR:         true,
			Textures:    true,
			EdgeWidth:   1,
			PointSize:   3,
			DeriveEdges: true,
			Grid:        true,
			HUD:         true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid config")

// Validate checks that values are usable.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Render.FPS > 0, "render.fps must be positive, got %d", c.Render.FPS)
	check(c.Render.TextureFilter == "nearest" || c.Render.TextureFilter == "bilinear",
		"render.texture_filter must be nearest or bilinear, got %q", c.Render.TextureFilter)
	check(c.Render.SnapshotWidth > 0 && c.Render.SnapshotHeight > 0,
		"snapshot size must be positive, got %dx%d", c.Render.SnapshotWidth, c.Render.SnapshotHeight)
	for _, v := range c.Render.Background {
		check(v >= 0 && v <= 255, "render.background components must be in [0, 255], got %v", c.Render.Background)
	}
	check(c.Camera.FOV > 0 && c.Camera.FOV < 180, "camera.fov must be in (0, 180), got %v", c.Camera.FOV)
	check(c.Camera.Distance > 0, "camera.distance must be positive, got %v", c.Camera.Distance)
	check(c.Camera.Near > 0 && c.Camera.Near < c.Camera.Far,
		"camera.near must be in (0, far), got near=%v far=%v", c.Camera.Near, c.Camera.Far)
	check(c.Light.Intensity >= 0, "light.intensity must not be negative, got %v", c.Light.Intensity)
	check(c.View.PointSize > 0, "view.point_size must be positive, got %v", c.View.PointSize)
	check(c.View.EdgeWidth > 0, "view.edge_width must be positive, got %v", c.View.EdgeWidth)

	return errors.Join(errs...)
}
