package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagWriteConfig = flag.String("write-config", "", "Write the effective config to this path and exit")
	flagDemo        = flag.Bool("demo", false, "Show the built-in cube and pyramid instead of a model")
	flagSnapshot    = flag.String("snapshot", "", "Render one frame to this PNG and exit")
	flagWidth       = flag.Int("width", 0, "Snapshot width in pixels")
	flagHeight      = flag.Int("height", 0, "Snapshot height in pixels")
	flagFPS         = flag.Int("fps", 0, "Target FPS")
	flagFilter      = flag.String("filter", "", "Texture filter (nearest or bilinear)")
	flagNoCull      = flag.Bool("no-cull", false, "Draw back faces")
	flagWireframe   = flag.Bool("wireframe", false, "Start in wireframe mode")
	flagEdges       = flag.Bool("edges", false, "Overlay mesh edges")
	flagPoints      = flag.Bool("points", false, "Overlay vertices as points")
	flagUnlit       = flag.Bool("unlit", false, "Draw vertex colors without lighting")
	flagSmooth      = flag.Bool("smooth", false, "Recompute smooth vertex normals")
	flagStill       = flag.Bool("still", false, "Disable auto-rotation")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flag.String("log", "", "Log file path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the -write-config destination, if any.
func WriteConfigPath() string {
	return *flagWriteConfig
}

// Demo reports whether -demo was given.
func Demo() bool {
	return *flagDemo
}

// SnapshotPath returns the -snapshot destination, if any.
func SnapshotPath() string {
	return *flagSnapshot
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagWidth > 0 {
		cfg.Render.SnapshotWidth = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Render.SnapshotHeight = *flagHeight
	}
	if *flagFPS > 0 {
		cfg.Render.FPS = *flagFPS
	}
	if *flagFilter != "" {
		cfg.Render.TextureFilter = *flagFilter
	}
	if *flagNoCull {
		cfg.Render.BackfaceCulling = false
	}
	if *flagWireframe {
		cfg.View.Wireframe = true
	}
	if *flagEdges {
		cfg.View.Edges = true
	}
	if *flagPoints {
		cfg.View.Points = true
	}
	if *flagUnlit {
		cfg.View.PBR = false
	}
	if *flagSmooth {
		cfg.View.RecomputeNormals = true
	}
	if *flagStill {
		cfg.View.AutoRotate = false
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
