package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/taigrr/pbrview/internal/config"
	"github.com/taigrr/pbrview/pkg/render"
)

// ViewState holds the toggles the keyboard flips (UI state, not library code)
type ViewState struct {
	PBR        bool
	Textures   bool
	Wireframe  bool
	Edges      bool
	Points     bool
	AutoRotate bool
	LightOrbit bool
	Grid       bool
	Axes       bool
	ShowHUD    bool
}

// NewViewState starts from the configured toggles.
func NewViewState(cfg *config.Config) *ViewState {
	return &ViewState{
		PBR:        cfg.View.PBR,
		Textures:   cfg.View.Textures,
		Wireframe:  cfg.View.Wireframe,
		Edges:      cfg.View.Edges,
		Points:     cfg.View.Points,
		AutoRotate: cfg.View.AutoRotate,
		LightOrbit: cfg.Light.Orbit,
		Grid:       cfg.View.Grid,
		Axes:       cfg.View.Axes,
		ShowHUD:    cfg.View.HUD,
	}
}

// DrawOptions combines the toggles with the configured sizes.
func (v *ViewState) DrawOptions(cfg config.ViewConfig) DrawOptions {
	return DrawOptions{
		PBR:       v.PBR,
		Textures:  v.Textures,
		Wireframe: v.Wireframe,
		Edges:     v.Edges,
		Points:    v.Points,
		EdgeWidth: cfg.EdgeWidth,
		PointSize: cfg.PointSize,
	}
}

// HUD renders an overlay with model info and toggles
type HUD struct {
	filename  string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD
func NewHUD(filename string, polyCount int) *HUD {
	return &HUD{
		filename:  filename,
		polyCount: polyCount,
		fpsTime:   time.Now(),
	}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

func checkbox(on bool) string {
	if on {
		return "[✓]"
	}
	return "[ ]"
}

// StatusLine lists the toggles shown on the bottom row.
func StatusLine(v *ViewState) string {
	items := []struct {
		on    bool
		label string
	}{
		{v.PBR, "PBR (m)"},
		{v.Textures && !v.Wireframe, "Texture (t)"},
		{v.Wireframe, "X-Ray (x)"},
		{v.Edges, "Edges (e)"},
		{v.Points, "Points (p)"},
		{v.LightOrbit, "Light orbit (l)"},
	}

	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = checkbox(it.on) + " " + it.label
	}
	return strings.Join(parts, "  ")
}

// Render draws the HUD overlay directly to the terminal
func (h *HUD) Render(width, height int, viewState *ViewState, stats render.CullingStats) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		dim       = "\x1b[2m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgYellow  = "\x1b[93m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)

	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	// Always clear the HUD rows (so toggling off works)
	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)

	if !viewState.ShowHUD {
		return
	}

	// Top left: FPS
	fmt.Printf("%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset)

	// Top middle: filename
	titleCol := max((width-len(h.filename)-2)/2, 1)
	fmt.Print(moveTo(1, titleCol) + fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset))

	// Top right: triangles and culled meshes
	info := fmt.Sprintf(" %d tris  %d/%d culled ", h.polyCount, stats.MeshesCulled, stats.MeshesTested)
	infoCol := max(width-len(info), 1)
	fmt.Print(moveTo(1, infoCol) + fmt.Sprintf("%s%s%s%s%s", bgBlack, fgCyan, bold, info, reset))

	// Bottom: toggles, then the help hint on the right
	fmt.Print(moveTo(height, 1) + fmt.Sprintf("%s%s %s %s", bgBlack, fgWhite, StatusLine(viewState), reset))

	hint := fmt.Sprintf("%s%s%s ?: hide  r: reset %s", bgBlack, dim, fgYellow, reset)
	fmt.Print(moveTo(height, max(width-20, 1)) + hint)
}
