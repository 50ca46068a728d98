package pipeline

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Target identifies the color attachment a pipeline renders into.
type Target int

const (
	// TargetSurface renders into the multisampled swapchain attachment in the surface format.
	TargetSurface Target = iota

	// TargetPicking renders into the single-sampled RGBA8Unorm identifier attachment.
	TargetPicking
)

// String returns the target name used in logs.
func (t Target) String() string {
	switch t {
	case TargetSurface:
		return "surface"
	case TargetPicking:
		return "picking"
	default:
		return "unknown"
	}
}

// AlphaBlend is the straight-alpha "over" blend used by translucent passes.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// State is the fixed-function configuration of a render pipeline.
type State struct {
	Target Target

	DepthTest    bool
	DepthWrite   bool
	DepthCompare wgpu.CompareFunction

	// DepthBias and DepthBiasSlope offset the stored depth, e.g. to pull overlays forward.
	DepthBias      int32
	DepthBiasSlope float32

	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	Cull      wgpu.CullMode

	// Blend is nil for opaque output.
	Blend     *wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// defaultState is an opaque, depth-tested, double-sided triangle list into the surface.
func defaultState() State {
	return State{
		Target:       TargetSurface,
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: wgpu.CompareFunctionLess,
		Topology:     wgpu.PrimitiveTopologyTriangleList,
		FrontFace:    wgpu.FrontFaceCCW,
		Cull:         wgpu.CullModeNone,
		WriteMask:    wgpu.ColorWriteMaskAll,
	}
}

// Primitive returns the primitive assembly state.
func (s State) Primitive() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{Topology: s.Topology, FrontFace: s.FrontFace, CullMode: s.Cull}
}

// ColorTarget returns the single color target state for an attachment format.
func (s State) ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{Format: format, Blend: s.Blend, WriteMask: s.WriteMask}
}

// DepthStencil returns the depth state for a depth attachment format. Disabling the depth test
// keeps the attachment but lets every fragment through. Stencil is unused.
func (s State) DepthStencil(format wgpu.TextureFormat) *wgpu.DepthStencilState {
	compare := s.DepthCompare
	if !s.DepthTest {
		compare = wgpu.CompareFunctionAlways
	}
	always := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}
	return &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   s.DepthWrite,
		DepthCompare:        compare,
		DepthBias:           s.DepthBias,
		DepthBiasSlopeScale: s.DepthBiasSlope,
		StencilFront:        always,
		StencilBack:         always,
	}
}

// built is what registration produced: the GPU pipeline, its layouts and the shader
// generations it was compiled from.
type built struct {
	pipeline               *wgpu.RenderPipeline
	layouts                []*wgpu.BindGroupLayout
	vertexGen, fragmentGen uint64
}

// pipeline implements Pipeline.
type pipeline struct {
	key              string
	state            State
	vertex, fragment shader.Shader
	gpu              built
}

// Pipeline pairs a vertex and a fragment shader with fixed-function state. The Renderer
// compiles it on registration and again whenever a shader reload makes it stale.
type Pipeline interface {
	// PipelineKey returns the cache key, the pass name for pass pipelines.
	PipelineKey() string

	// Target returns the color attachment the pipeline renders into.
	Target() Target

	// State returns the fixed-function configuration.
	State() State

	// Shader returns the shader of a stage, nil if unset.
	Shader(shaderType shader.ShaderType) shader.Shader

	// Layouts merges the bind group layout descriptors of both stages by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
	Layouts() map[int]wgpu.BindGroupLayoutDescriptor

	// Pipeline returns the compiled render pipeline, nil until registered.
	Pipeline() *wgpu.RenderPipeline

	// BindGroupLayouts returns the GPU layouts created at registration, indexed by group.
	BindGroupLayouts() []*wgpu.BindGroupLayout

	// Stale reports whether either shader was reloaded after the pipeline was compiled.
	Stale() bool

	// SetRenderPipeline stores a compiled pipeline and the layouts it was built against, stamping
	// the current shader generations. A previously stored pipeline is released.
	//
	// Parameters:
	//   - p: the compiled render pipeline
	//   - layouts: the bind group layouts of its pipeline layout, indexed by group
	SetRenderPipeline(p *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout)

	// Release releases the compiled pipeline and its layouts.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an uncompiled pipeline. Both shaders must be set through WithVertexShader
// and WithFragmentShader before the Renderer registers it.
//
// Parameters:
//   - key: the cache key
//   - opts: shader and fixed-function options
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(key string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{key: key, state: defaultState()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string { return p.key }

func (p *pipeline) Target() Target { return p.state.Target }

func (p *pipeline) State() State { return p.state }

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertex
	case shader.ShaderTypeFragment:
		return p.fragment
	}
	return nil
}

func (p *pipeline) Layouts() map[int]wgpu.BindGroupLayoutDescriptor {
	var vertex, fragment map[int]wgpu.BindGroupLayoutDescriptor
	if p.vertex != nil {
		vertex = p.vertex.BindGroupLayoutDescriptors()
	}
	if p.fragment != nil {
		fragment = p.fragment.BindGroupLayoutDescriptors()
	}
	return MergeBindGroupLayouts(vertex, fragment)
}

func (p *pipeline) Pipeline() *wgpu.RenderPipeline { return p.gpu.pipeline }

func (p *pipeline) BindGroupLayouts() []*wgpu.BindGroupLayout { return p.gpu.layouts }

func (p *pipeline) Stale() bool {
	if p.gpu.pipeline == nil {
		return false
	}
	return p.vertex.Generation() != p.gpu.vertexGen || p.fragment.Generation() != p.gpu.fragmentGen
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout) {
	p.Release()
	p.gpu = built{pipeline: rp, layouts: layouts}
	if p.vertex != nil {
		p.gpu.vertexGen = p.vertex.Generation()
	}
	if p.fragment != nil {
		p.gpu.fragmentGen = p.fragment.Generation()
	}
}

func (p *pipeline) Release() {
	if p.gpu.pipeline != nil {
		p.gpu.pipeline.Release()
	}
	for _, l := range p.gpu.layouts {
		if l != nil {
			l.Release()
		}
	}
	p.gpu = built{}
}
