package scene

import (
	"io/fs"

	"github.com/Carmen-Shannon/oxy-shade/engine/config"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether Render draws anything. Inactive scenes skip their frames.
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithLogger replaces the scene logger, which defaults to logger.Named("scene").
func WithLogger(l *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.log = l
	}
}

// WithWorkers sets how many goroutines marshal the tables each frame, at least one.
// Defaults to runtime.NumCPU()-1, capped at one per table.
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.workers = max(n, 1)
	}
}

// WithMaxDraws sets the payload slots per pass, at least one. Draws past the last slot are
// dropped for the frame.
func WithMaxDraws(n int) SceneBuilderOption {
	return func(s *scene) {
		s.maxDraws = max(n, 1)
	}
}

// WithGrid enables or disables the ground grid and sets its parameters.
//
// Parameters:
//   - enabled: whether the grid pass is built and drawn
//   - params: spacing, axis width and fade distance
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGrid(enabled bool, params shading.GridParams) SceneBuilderOption {
	return func(s *scene) {
		s.enabled[pipeline.PassGrid] = enabled
		s.gridParams = params
	}
}

// WithOutline enables or disables the selection outline and sets its appearance.
//
// Parameters:
//   - enabled: whether the outline pass is built and drawn
//   - color: highlight color, rgb in [0, 1]
//   - width: dilation in [0, 1], larger values saturate
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithOutline(enabled bool, color [3]float32, width float32) SceneBuilderOption {
	return func(s *scene) {
		s.enabled[pipeline.PassOutline] = enabled
		s.outlineColor = color
		s.outlineWidth = width
	}
}

// WithPicking enables or disables the picking pass. Must match the Renderer's picking target.
func WithPicking(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.enabled[pipeline.PassPicking] = enabled
	}
}

// WithShaderFS reads pass sources from fsys instead of the embedded shaders.
func WithShaderFS(fsys fs.FS) SceneBuilderOption {
	return func(s *scene) {
		s.shaderFS = fsys
	}
}

// WithShaderDir reads pass sources from a directory on disk. With hotReload set, the scene
// watches the directory and ReloadShaders rebuilds the pipelines of changed files.
//
// Parameters:
//   - dir: the directory holding the pass sources
//   - hotReload: whether to watch dir for changes
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShaderDir(dir string, hotReload bool) SceneBuilderOption {
	return func(s *scene) {
		s.shaderDir = dir
		s.hotReload = hotReload
	}
}

// WithShaderValidation toggles compiling every loaded shader before its pipeline is created.
func WithShaderValidation(validate bool) SceneBuilderOption {
	return func(s *scene) {
		s.validateShaders = validate
	}
}

// WithTextureSet uses set as the texture table instead of an empty one.
func WithTextureSet(set *texture.Set) SceneBuilderOption {
	return func(s *scene) {
		s.textures = set
	}
}

// WithConfig applies the shading, texture, shader and draw budget settings of cfg.
//
// Parameters:
//   - cfg: a validated configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg *config.Config) SceneBuilderOption {
	return func(s *scene) {
		grid := cfg.Shading.Grid
		WithGrid(grid.Enabled, shading.GridParams{
			Spacing:      grid.Spacing,
			AxisWidth:    grid.AxisWidth,
			FadeDistance: grid.FadeDistance,
		})(s)

		outline := cfg.Shading.Outline
		var color [3]float32
		copy(color[:], outline.Color)
		WithOutline(outline.Enabled, color, outline.Width)(s)

		WithPicking(cfg.Renderer.Picking)(s)
		WithMaxDraws(cfg.Renderer.MaxDrawsPerFrame)(s)
		WithTextureSet(texture.NewSet(cfg.Textures.LayerSize, cfg.Textures.MaxLayers))(s)
		WithShaderValidation(cfg.Shaders.Validate)(s)
		if cfg.Shaders.Dir != "" {
			WithShaderDir(cfg.Shaders.Dir, cfg.Shaders.HotReload)(s)
		}
	}
}
