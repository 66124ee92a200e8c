// pbrview - Terminal glTF Viewer
// View glTF and GLB scenes in your terminal with physically based shading.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Space       - Apply random impulse
//	R           - Reset view
//	M           - Toggle PBR shading (off draws unlit vertex colors)
//	T           - Toggle textures
//	X           - Toggle wireframe mode (x-ray)
//	E           - Toggle edge overlay
//	P           - Toggle point overlay
//	L           - Toggle light orbit
//	O           - Toggle auto-rotation
//	G/C         - Toggle grid/axes
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"go.uber.org/zap"

	"github.com/taigrr/pbrview/internal/config"
	"github.com/taigrr/pbrview/internal/logger"
	"github.com/taigrr/pbrview/pkg/models"
	"github.com/taigrr/pbrview/pkg/render"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pbrview - Terminal glTF Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pbrview [options] <scene.gltf|scene.glb>\n")
		fmt.Fprintf(os.Stderr, "       pbrview -demo\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Rotate model\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  M           - Toggle PBR shading\n")
		fmt.Fprintf(os.Stderr, "  T           - Toggle textures\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  E/P         - Toggle edges/points\n")
		fmt.Fprintf(os.Stderr, "  L           - Toggle light orbit\n")
		fmt.Fprintf(os.Stderr, "  O           - Toggle auto-rotation\n")
		fmt.Fprintf(os.Stderr, "  G/C         - Toggle grid/axes\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	args := config.Args()
	if len(args) < 1 && !config.Demo() {
		flag.Usage()
		os.Exit(1)
	}

	// The terminal belongs to the renderer in interactive mode
	snapshot := config.SnapshotPath()
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, snapshot != ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var modelPath string
	if len(args) > 0 {
		modelPath = args[0]
	}

	model, err := loadModel(cfg, modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Path: %s\n", modelPath)
		os.Exit(1)
	}

	if snapshot != "" {
		err = runSnapshot(cfg, model, snapshot)
	} else {
		err = run(cfg, model)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadModel loads the scene at path, or the demo scene when -demo is set.
func loadModel(cfg *config.Config, path string) (*models.Model, error) {
	var model *models.Model
	if config.Demo() || path == "" {
		model = demoModel(cfg.View.DeriveEdges)
	} else {
		loader := &models.GLTFLoader{
			Logger:        logger.Named("loader"),
			SmoothNormals: true,
			DeriveEdges:   cfg.View.DeriveEdges,
		}
		var err error
		model, err = loader.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if cfg.View.RecomputeNormals {
		for _, mesh := range model.Meshes {
			mesh.CalculateSmoothNormals()
		}
	}

	logger.Info("model loaded",
		zap.String("name", model.Name),
		zap.Int("meshes", len(model.Meshes)),
		zap.Int("vertices", model.VertexCount()),
		zap.Int("triangles", model.TriangleCount()),
		zap.Int("textures", len(model.Textures)),
	)
	return model, nil
}

// runSnapshot renders a single frame to a PNG file.
func runSnapshot(cfg *config.Config, model *models.Model, path string) error {
	fb := render.NewFramebuffer(cfg.Render.SnapshotWidth, cfg.Render.SnapshotHeight)
	v, err := newViewer(cfg, model, fb, logger.Named("viewer"))
	if err != nil {
		return err
	}
	defer v.close()

	if err := v.render(); err != nil {
		return err
	}
	if err := fb.SavePNG(path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.Info("snapshot written", zap.String("path", path), zap.Int("width", fb.Width), zap.Int("height", fb.Height))
	return nil
}

func run(cfg *config.Config, model *models.Model) error {
	// Create terminal
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fb := render.NewFramebuffer(termRenderer.FramebufferSize())

	v, err := newViewer(cfg, model, fb, logger.Named("viewer"))
	if err != nil {
		return err
	}
	defer v.close()

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	name := model.Name
	if name == "" {
		name = "scene"
	}
	hud := NewHUD(filepath.Base(name), model.TriangleCount())

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Mouse state
	var mouseDown bool
	var lastMouseX, lastMouseY int

	handle := func(ev any) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			termRenderer = render.NewTerminalRenderer(term, width, height)
			fb = render.NewFramebuffer(termRenderer.FramebufferSize())
			v.resize(fb)

		case uv.KeyPressEvent:
			if v.apply(keyAction(ev)) {
				cancel()
			}

		case uv.KeyReleaseEvent:
			v.release(ev)

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				dx := ev.X - lastMouseX
				dy := ev.Y - lastMouseY
				v.rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				v.apply(actZoomIn)
			case uv.MouseWheelDown:
				v.apply(actZoomOut)
			}
		}
	}

	// Main loop
	targetDuration := time.Second / time.Duration(cfg.Render.FPS)
	lastFrame := time.Now()
	events := term.Events()

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	for {
		// Drain pending input before drawing so resizes never race a frame
	drain:
		for {
			select {
			case <-ctx.Done():
				cleanup()
				return nil
			case ev, ok := <-events:
				if !ok {
					cleanup()
					return nil
				}
				handle(ev)
			default:
				break drain
			}
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		if dt > 0.1 {
			dt = 0.1
		}

		v.update(dt)
		if err := v.render(); err != nil {
			cleanup()
			return err
		}

		if err := termRenderer.Present(fb); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		// HUD overlay (always update FPS, render clears lines when HUD off)
		hud.UpdateFPS()
		hud.Render(width, height, v.view, v.stats())

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
