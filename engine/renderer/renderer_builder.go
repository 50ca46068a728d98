package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// RendererBuilderOption configures a renderer in NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the initial present mode. Defaults to PresentModeVSync.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.presentMode = mode
	}
}

// WithMSAA sets the sample count of the surface pass. Defaults to MSAA4x.
//
// Parameters:
//   - count: MSAAOff or MSAA4x; any other count falls back to MSAA4x
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		if count != MSAAOff {
			count = MSAA4x
		}
		r.cfg.samples = count
	}
}

// WithSoftwareAdapter requests the fallback adapter, a software rasterizer such as lavapipe or
// SwiftShader, instead of a hardware GPU. The adapter request fails if none is installed.
func WithSoftwareAdapter(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.fallbackAdapter = enabled
	}
}

// WithPicking enables or disables the offscreen picking target and its readback buffer.
// Enabled by default.
func WithPicking(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.picking = enabled
	}
}

// WithClearColor sets the color the surface pass clears to.
//
// Parameters:
//   - c: RGBA components in [0, 1]; missing components default to 0 and alpha to 1
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithClearColor(c ...float64) RendererBuilderOption {
	return func(r *renderer) {
		rgba := [4]float64{0, 0, 0, 1}
		copy(rgba[:], c)
		r.cfg.clearColor = wgpu.Color{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	}
}

// WithLogger replaces the logger, logger.Named("renderer") by default.
func WithLogger(l *zap.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.log = l
	}
}
