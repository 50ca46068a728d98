// Package config handles viewer and renderer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all engine settings.
type Config struct {
	Window   WindowConfig   `yaml:"window" toml:"window"`
	Renderer RendererConfig `yaml:"renderer" toml:"renderer"`
	Camera   CameraConfig   `yaml:"camera" toml:"camera"`
	Shading  ShadingConfig  `yaml:"shading" toml:"shading"`
	Textures TexturesConfig `yaml:"textures" toml:"textures"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Shaders  ShadersConfig  `yaml:"shaders" toml:"shaders"`
}

// WindowConfig holds the native window settings.
type WindowConfig struct {
	Title  string `yaml:"title" toml:"title"`
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
}

// RendererConfig holds device and frame settings.
type RendererConfig struct {
	MSAA             int       `yaml:"msaa" toml:"msaa"`                               // 1 or 4
	PresentMode      string    `yaml:"present_mode" toml:"present_mode"`               // fifo, mailbox, immediate
	MaxDrawsPerFrame int       `yaml:"max_draws_per_frame" toml:"max_draws_per_frame"` // payload slots
	Picking          bool      `yaml:"picking" toml:"picking"`
	// SoftwareAdapter requests the fallback adapter, e.g. lavapipe.
	SoftwareAdapter  bool      `yaml:"software_adapter" toml:"software_adapter"`
	ClearColor       []float64 `yaml:"clear_color" toml:"clear_color"` // rgba
	TickRate         int       `yaml:"tick_rate" toml:"tick_rate"`     // updates per second
}

// CameraConfig holds the lens and orbit input settings of the viewer camera.
type CameraConfig struct {
	FovDegrees       float32   `yaml:"fov_degrees" toml:"fov_degrees"`
	Near             float32   `yaml:"near" toml:"near"`
	Far              float32   `yaml:"far" toml:"far"`
	Distance         float32   `yaml:"distance" toml:"distance"`
	Target           []float32 `yaml:"target" toml:"target"`                       // xyz
	OrbitSpeed       float32   `yaml:"orbit_speed" toml:"orbit_speed"`             // radians per key step
	MouseSensitivity float32   `yaml:"mouse_sensitivity" toml:"mouse_sensitivity"` // radians per pixel
	ZoomSpeed        float32   `yaml:"zoom_speed" toml:"zoom_speed"`
	PanSpeed         float32   `yaml:"pan_speed" toml:"pan_speed"`
}

// ShadingConfig holds settings consumed by the shading passes.
type ShadingConfig struct {
	Grid    GridConfig    `yaml:"grid" toml:"grid"`
	Outline OutlineConfig `yaml:"outline" toml:"outline"`
}

// GridConfig parameterizes the infinite ground grid.
type GridConfig struct {
	Enabled      bool    `yaml:"enabled" toml:"enabled"`
	Spacing      float32 `yaml:"spacing" toml:"spacing"`
	AxisWidth    float32 `yaml:"axis_width" toml:"axis_width"`
	FadeDistance float32 `yaml:"fade_distance" toml:"fade_distance"`
}

// OutlineConfig holds the selection highlight appearance.
type OutlineConfig struct {
	Enabled bool      `yaml:"enabled" toml:"enabled"`
	Color   []float32 `yaml:"color" toml:"color"` // rgb in [0, 1]
	Width   float32   `yaml:"width" toml:"width"` // in [0, 1]
}

// TexturesConfig holds texture table settings.
type TexturesConfig struct {
	LayerSize uint32 `yaml:"layer_size" toml:"layer_size"`
	MaxLayers uint32 `yaml:"max_layers" toml:"max_layers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// ShadersConfig controls where WGSL sources come from and how they are checked.
type ShadersConfig struct {
	Dir       string `yaml:"dir" toml:"dir"` // empty uses the embedded sources
	HotReload bool   `yaml:"hot_reload" toml:"hot_reload"`
	Validate  bool   `yaml:"validate" toml:"validate"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy-shade",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			MSAA:             4,
			PresentMode:      "fifo",
			MaxDrawsPerFrame: 1024,
			Picking:          true,
			ClearColor:       []float64{0.08, 0.08, 0.1, 1},
			TickRate:         60,
		},
		Camera: CameraConfig{
			FovDegrees:       45,
			Near:             0.1,
			Far:              1000,
			Distance:         10,
			Target:           []float32{0, 0.5, 0},
			OrbitSpeed:       0.03,
			MouseSensitivity: 0.005,
			ZoomSpeed:        0.5,
			PanSpeed:         0.1,
		},
		Shading: ShadingConfig{
			Grid: GridConfig{
				Enabled:      true,
				Spacing:      1.0,
				AxisWidth:    0.1,
				FadeDistance: 100,
			},
			Outline: OutlineConfig{
				Enabled: true,
				Color:   []float32{1, 0.6, 0.1},
				Width:   0.05,
			},
		},
		Textures: TexturesConfig{
			LayerSize: 1024,
			MaxLayers: 64,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Shaders: ShadersConfig{
			Validate: true,
		},
	}
}

// Validate reports every setting that the renderer cannot honor.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		errs = append(errs, fmt.Errorf("renderer.msaa must be 1 or 4, got %d", c.Renderer.MSAA))
	}
	switch c.Renderer.PresentMode {
	case "fifo", "mailbox", "immediate":
	default:
		errs = append(errs, fmt.Errorf("renderer.present_mode %q is not one of fifo, mailbox, immediate", c.Renderer.PresentMode))
	}
	if c.Renderer.MaxDrawsPerFrame <= 0 {
		errs = append(errs, fmt.Errorf("renderer.max_draws_per_frame must be positive, got %d", c.Renderer.MaxDrawsPerFrame))
	}
	if len(c.Renderer.ClearColor) != 4 {
		errs = append(errs, fmt.Errorf("renderer.clear_color needs 4 components, got %d", len(c.Renderer.ClearColor)))
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov_degrees must be in (0, 180), got %g", c.Camera.FovDegrees))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera.near %g and camera.far %g must satisfy 0 < near < far", c.Camera.Near, c.Camera.Far))
	}
	if len(c.Camera.Target) != 3 {
		errs = append(errs, fmt.Errorf("camera.target needs 3 components, got %d", len(c.Camera.Target)))
	}
	if c.Shading.Grid.Spacing <= 0 {
		errs = append(errs, fmt.Errorf("shading.grid.spacing must be positive, got %g", c.Shading.Grid.Spacing))
	}
	if c.Shading.Grid.FadeDistance <= 0 {
		errs = append(errs, fmt.Errorf("shading.grid.fade_distance must be positive, got %g", c.Shading.Grid.FadeDistance))
	}
	if len(c.Shading.Outline.Color) != 3 {
		errs = append(errs, fmt.Errorf("shading.outline.color needs 3 components, got %d", len(c.Shading.Outline.Color)))
	}
	if c.Shading.Outline.Width < 0 || c.Shading.Outline.Width > 1 {
		errs = append(errs, fmt.Errorf("shading.outline.width must be in [0, 1], got %g", c.Shading.Outline.Width))
	}
	if c.Textures.LayerSize == 0 || c.Textures.MaxLayers == 0 {
		errs = append(errs, errors.New("textures.layer_size and textures.max_layers must be positive"))
	}
	return errors.Join(errs...)
}
