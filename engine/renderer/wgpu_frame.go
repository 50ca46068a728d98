package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// frame is the frame between BeginFrame and Present. encoder and pass are nil once the frame
// is submitted; the swapchain texture is held until it is presented.
type frame struct {
	swapchain *wgpu.Texture
	view      *wgpu.TextureView
	encoder   *wgpu.CommandEncoder
	pass      *wgpu.RenderPassEncoder
	target    pipeline.Target
}

func (f *frame) endPass() {
	if f.pass != nil {
		f.pass.End()
		f.pass.Release()
		f.pass = nil
	}
}

// abandon drops the frame without submitting or presenting it.
func (f *frame) abandon() {
	if f.pass != nil {
		f.pass.Release()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.Release()
		f.encoder = nil
	}
	f.view.Release()
	f.swapchain.Release()
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// wgpu-native rejects a second acquire before Present
	if b.frame != nil {
		return errors.New("previous frame not yet presented")
	}
	if b.targets == nil {
		return ErrSurfaceNotConfigured
	}

	swapchain, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire swapchain texture: %w", err)
	}
	view, err := swapchain.CreateView(nil)
	if err != nil {
		swapchain.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		swapchain.Release()
		return err
	}

	b.frame = &frame{
		swapchain: swapchain,
		view:      view,
		encoder:   encoder,
		pass:      encoder.BeginRenderPass(b.targets.surfacePass(view, b.cfg.clearColor)),
		target:    pipeline.TargetSurface,
	}
	return nil
}

func (b *wgpuBackend) BeginPickingPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame == nil || b.frame.pass == nil {
		return ErrNoFrame
	}
	if !b.targets.picking {
		return ErrPickingDisabled
	}
	if b.frame.target == pipeline.TargetPicking {
		return nil
	}
	b.frame.endPass()
	b.frame.pass = b.frame.encoder.BeginRenderPass(b.targets.pickingPass())
	b.frame.target = pipeline.TargetPicking
	return nil
}

// dynamicOffsets checks every binding of a draw and returns the offsets to bind each group with.
func dynamicOffsets(key string, bindings []Binding) ([][]uint32, error) {
	offsets := make([][]uint32, len(bindings))
	for i, bnd := range bindings {
		if bnd.Provider == nil || bnd.Provider.BindGroup() == nil {
			return nil, fmt.Errorf("%s: group %d has no bind group", key, i)
		}
		if !bnd.Provider.Dynamic() {
			continue
		}
		if bnd.Slot < 0 || bnd.Slot >= bnd.Provider.Slots() {
			return nil, fmt.Errorf("%s: group %d slot %d outside %d slots", key, i, bnd.Slot, bnd.Provider.Slots())
		}
		offsets[i] = []uint32{bnd.Provider.DynamicOffset(bnd.Slot)}
	}
	return offsets, nil
}

func (b *wgpuBackend) DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, bindings []Binding) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame == nil || b.frame.pass == nil {
		return ErrNoFrame
	}
	key := p.PipelineKey()
	if p.Target() != b.frame.target {
		return fmt.Errorf("%s draws into %s, active pass is %s: %w", key, p.Target(), b.frame.target, ErrTargetMismatch)
	}
	compiled := p.Pipeline()
	if compiled == nil {
		return fmt.Errorf("pipeline %s is not registered", key)
	}
	if mesh.VertexBuffer() == nil {
		return fmt.Errorf("%s: no vertex buffer", mesh.Label())
	}
	offsets, err := dynamicOffsets(key, bindings)
	if err != nil {
		return err
	}

	pass := b.frame.pass
	pass.SetPipeline(compiled)
	for i, bnd := range bindings {
		pass.SetBindGroup(uint32(i), bnd.Provider.BindGroup(), offsets[i])
	}
	pass.SetVertexBuffer(0, mesh.VertexBuffer(), 0, wgpu.WholeSize)
	if mesh.IndexBuffer() == nil {
		pass.Draw(uint32(mesh.VertexCount()), 1, 0, 0)
		return nil
	}
	pass.SetIndexBuffer(mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(mesh.IndexCount()), 1, 0, 0, 0)
	return nil
}

func (b *wgpuBackend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.frame
	if f == nil || f.encoder == nil {
		return
	}
	f.endPass()

	commands, err := f.encoder.Finish(nil)
	f.encoder.Release()
	f.encoder = nil
	if err != nil {
		b.log.Error("frame abandoned", zap.Error(err))
		f.abandon()
		b.frame = nil
		return
	}
	b.queue.Submit(commands)
	commands.Release()
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.frame
	if f == nil {
		return
	}
	if f.encoder != nil {
		// EndFrame was skipped; nothing was submitted to show
		f.abandon()
		b.frame = nil
		return
	}
	b.surface.Present()
	f.view.Release()
	f.swapchain.Release()
	b.frame = nil
}
