package engine

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables frame statistics output.
//
// Parameters:
//   - enabled: if true, frame statistics are logged and shown in the window title
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profiling = enabled
	}
}

// WithProfiler replaces the default profiler, e.g. to change its reporting interval.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets how often camera input is applied, in ticks per second.
// Values <= 0 select the default of 60.
func WithTickRate(hz float64) EngineBuilderOption {
	return func(e *engine) {
		e.tickRate = hzToPeriod(hz)
	}
}

// WithWindow sets the window whose events drive the camera, picking and surface size.
//
// Parameters:
//   - w: an open Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene sets the scene rendered each frame.
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithLogger replaces the engine logger, which defaults to logger.Named("engine").
func WithLogger(l *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.log = l
	}
}

// WithRenderFrameLimit caps the render loop in frames per second. 0 uncaps it (default).
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = 0
		if fps > 0 {
			e.frameLimit = hzToPeriod(fps)
		}
	}
}
