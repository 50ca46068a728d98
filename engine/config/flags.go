package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file (.yaml, .yml or .toml)")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagWidth     = flag.Int("width", 0, "Window width")
	flagHeight    = flag.Int("height", 0, "Window height")
	flagMSAA      = flag.Int("msaa", 0, "MSAA sample count (1 or 4)")
	flagNoGrid    = flag.Bool("no-grid", false, "Disable the ground grid")
	flagShaderDir = flag.String("shader-dir", "", "Load WGSL from this directory instead of the embedded sources")
	flagHotReload = flag.Bool("hot-reload", false, "Watch the shader directory and rebuild pipelines on change")
	flagSoftware  = flag.Bool("software", false, "Request the fallback (software) GPU adapter")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagMSAA > 0 {
		cfg.Renderer.MSAA = *flagMSAA
	}
	if *flagNoGrid {
		cfg.Shading.Grid.Enabled = false
	}
	if *flagShaderDir != "" {
		cfg.Shaders.Dir = *flagShaderDir
	}
	if *flagHotReload {
		cfg.Shaders.HotReload = true
	}
	if *flagSoftware {
		cfg.Renderer.SoftwareAdapter = true
	}
}
