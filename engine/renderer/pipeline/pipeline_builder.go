package pipeline

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a Pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertex = s
	}
}

// WithFragmentShader sets the fragment stage.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragment = s
	}
}

// WithState replaces the whole fixed-function state. Options after it still apply on top.
func WithState(s State) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state = s
	}
}

// WithTarget sets the color attachment the pipeline renders into.
//
// Parameters:
//   - target: TargetSurface or TargetPicking
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithTarget(target Target) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Target = target
	}
}

// WithDepth sets whether fragments are depth tested and whether they write depth.
//
// Parameters:
//   - test: false lets every fragment through
//   - write: false keeps the depth attachment unchanged, e.g. for overlays
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthTest = test
		p.state.DepthWrite = write
	}
}

// WithDepthCompare sets the comparison used while depth testing. Defaults to Less.
func WithDepthCompare(compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthCompare = compare
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias.
func WithDepthBias(bias int32, slope float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthBias = bias
		p.state.DepthBiasSlope = slope
	}
}

// WithCullMode sets which faces are discarded. Defaults to none.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Cull = mode
	}
}

// WithTopology sets the primitive topology. Defaults to triangle lists.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Topology = topology
	}
}

// WithFrontFace sets the winding of front faces. Defaults to counter-clockwise.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.FrontFace = frontFace
	}
}

// WithBlend sets the color blend. nil writes opaque color (default).
//
// Parameters:
//   - blend: the blend state, e.g. &AlphaBlend
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithBlend(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Blend = blend
	}
}

// WithWriteMask sets which color channels are written. Defaults to all.
func WithWriteMask(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.WriteMask = mask
	}
}
