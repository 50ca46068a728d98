package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

func releaseLayouts(layouts []*wgpu.BindGroupLayout) {
	for _, l := range layouts {
		if l != nil {
			l.Release()
		}
	}
}

// createLayouts creates one bind group layout per group index up to the highest group either
// stage declares. Gaps get an empty layout so group indices stay stable.
func (b *wgpuBackend) createLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, error) {
	merged := p.Layouts()
	layouts := make([]*wgpu.BindGroupLayout, pipeline.GroupCount(merged))
	for g := range layouts {
		desc, ok := merged[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{}
		}
		desc.Label = fmt.Sprintf("%s group %d", p.PipelineKey(), g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			releaseLayouts(layouts)
			return nil, fmt.Errorf("group %d layout: %w", g, err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (b *wgpuBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	key := p.PipelineKey()
	vs, fs := p.Shader(shader.ShaderTypeVertex), p.Shader(shader.ShaderTypeFragment)
	if vs == nil || fs == nil {
		return fmt.Errorf("pipeline %s needs a vertex and a fragment shader", key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.targets == nil {
		return ErrSurfaceNotConfigured
	}
	if p.Target() == pipeline.TargetPicking && !b.targets.picking {
		return fmt.Errorf("pipeline %s: %w", key, ErrPickingDisabled)
	}

	vertexModule, err := b.device.CreateShaderModule(vs.Module())
	if err != nil {
		return fmt.Errorf("vertex module %s: %w", vs.Key(), err)
	}
	defer vertexModule.Release()
	fragmentModule, err := b.device.CreateShaderModule(fs.Module())
	if err != nil {
		return fmt.Errorf("fragment module %s: %w", fs.Key(), err)
	}
	defer fragmentModule.Release()

	layouts, err := b.createLayouts(p)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", key, err)
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            key,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("pipeline %s layout: %w", key, err)
	}
	defer pipelineLayout.Release()

	state := p.State()
	format, samples := b.targets.colorFormat(p.Target())
	compiled, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vertexModule,
			EntryPoint: vs.EntryPoint(),
			Buffers:    vs.VertexBuffers(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragmentModule,
			EntryPoint: fs.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{state.ColorTarget(format)},
		},
		Primitive:    state.Primitive(),
		DepthStencil: state.DepthStencil(DepthFormat),
		Multisample:  wgpu.MultisampleState{Count: samples, Mask: ^uint32(0)},
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("pipeline %s: %w", key, err)
	}

	p.SetRenderPipeline(compiled, layouts)
	b.log.Info("pipeline compiled",
		zap.String("pipeline", key),
		zap.Stringer("target", p.Target()),
		zap.Int("groups", len(layouts)),
		zap.Uint32("samples", samples),
	)
	return nil
}
