package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// uploadBuffer creates a buffer sized for data and queues data into it.
func (b *wgpuBackend) uploadBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount, vertexCount int) error {
	if len(vertexData) == 0 {
		return fmt.Errorf("%s: no vertex data", provider.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vertices, err := b.uploadBuffer(provider.Label()+" vertices", wgpu.BufferUsageVertex, vertexData)
	if err != nil {
		return err
	}
	var indices *wgpu.Buffer
	if len(indexData) > 0 {
		if indices, err = b.uploadBuffer(provider.Label()+" indices", wgpu.BufferUsageIndex, indexData); err != nil {
			vertices.Release()
			return err
		}
	}
	provider.SetGeometry(vertices, indices)
	provider.SetCounts(indexCount, vertexCount)
	return nil
}

// bufferUsage derives the buffer usage from a layout entry's binding type.
func bufferUsage(t wgpu.BufferBindingType) wgpu.BufferUsage {
	if t == wgpu.BufferBindingTypeUniform {
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
	return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
}

// bufferEntry returns the bind group entry of a buffer binding, creating the buffer when the
// provider has none yet.
func (b *wgpuBackend) bufferEntry(provider bind_group_provider.BindGroupProvider, entry wgpu.BindGroupLayoutEntry, minSize uint64) (wgpu.BindGroupEntry, error) {
	binding := int(entry.Binding)
	dynamic := entry.Buffer.HasDynamicOffset
	if dynamic && !provider.Dynamic() {
		return wgpu.BindGroupEntry{}, fmt.Errorf("binding %d takes a dynamic offset but the provider has no slots", binding)
	}

	buf := provider.Buffer(binding)
	if buf == nil {
		size := max(entry.Buffer.MinBindingSize, minSize)
		if dynamic {
			size = max(size, provider.DynamicStride()*uint64(provider.Slots()))
		}
		usage := bufferUsage(entry.Buffer.Type)
		var err error
		buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s binding %d", provider.Label(), binding),
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("binding %d: %w", binding, err)
		}
		provider.SetBuffer(binding, buf, size, usage)
	}

	return wgpu.BindGroupEntry{Binding: entry.Binding, Buffer: buf, Size: bindingSize(dynamic, provider.DynamicStride())}, nil
}

// bindingSize is the bound range of a buffer: one slot for dynamic-offset bindings, the whole
// buffer otherwise.
func bindingSize(dynamic bool, stride uint64) uint64 {
	if dynamic {
		return stride
	}
	return wgpu.WholeSize
}

func (b *wgpuBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, layout *wgpu.BindGroupLayout, bufferSizeOverrides map[int]uint64) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}
	if layout == nil {
		return fmt.Errorf("%s: no bind group layout, register the pipeline first", provider.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	for _, e := range descriptor.Entries {
		binding := int(e.Binding)
		switch {
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			view := provider.TextureView(binding)
			if view == nil {
				return fmt.Errorf("%s: texture binding %d has no view, call InitTextureView first", provider.Label(), binding)
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, TextureView: view})
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			s := provider.Sampler(binding)
			if s == nil {
				return fmt.Errorf("%s: sampler binding %d has no sampler, call InitSampler first", provider.Label(), binding)
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, Sampler: s})
		default:
			entry, err := b.bufferEntry(provider, e, bufferSizeOverrides[binding])
			if err != nil {
				return fmt.Errorf("%s: %w", provider.Label(), err)
			}
			entries = append(entries, entry)
		}
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%s bind group: %w", provider.Label(), err)
	}
	provider.SetBindGroup(bg)
	return nil
}

// grownSize doubles from current until size fits, so a table that keeps growing reallocates rarely.
func grownSize(current, size uint64) uint64 {
	n := max(current, 1)
	for n < size {
		n *= 2
	}
	return n
}

func (b *wgpuBackend) EnsureBufferCapacity(provider bind_group_provider.BindGroupProvider, binding int, size uint64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if provider.Buffer(binding) == nil {
		return false, fmt.Errorf("%s: no buffer at binding %d", provider.Label(), binding)
	}
	current := provider.BufferSize(binding)
	if size <= current {
		return false, nil
	}

	newSize := grownSize(current, size)
	usage := provider.BufferUsage(binding)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s binding %d", provider.Label(), binding),
		Size:  newSize,
		Usage: usage,
	})
	if err != nil {
		return false, fmt.Errorf("%s: grow binding %d: %w", provider.Label(), binding, err)
	}
	// releases the old buffer and the bind group referencing it
	provider.SetBuffer(binding, buf, newSize, usage)

	b.log.Debug("buffer grown",
		zap.String("provider", provider.Label()),
		zap.Int("binding", binding),
		zap.Uint64("from", current),
		zap.Uint64("to", newSize),
	)
	return true, nil
}

func (b *wgpuBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	layers := stagingData.LayerCount()
	want := int(stagingData.Width) * int(stagingData.Height) * 4 * int(layers)
	if want == 0 || len(stagingData.Pixels) != want {
		return fmt.Errorf("%s: %d bytes of texture data for %d layers of %dx%d",
			provider.Label(), len(stagingData.Pixels), layers, stagingData.Width, stagingData.Height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	extent := wgpu.Extent3D{
		Width:              stagingData.Width,
		Height:             stagingData.Height,
		DepthOrArrayLayers: layers,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         provider.Label() + " layers",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          extent,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("%s texture: %w", provider.Label(), err)
	}
	// the view holds its own reference
	defer tex.Release()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{BytesPerRow: stagingData.Width * 4, RowsPerImage: stagingData.Height},
		&extent,
	)

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           provider.Label() + " layers",
		Format:          wgpu.TextureFormatRGBA8Unorm,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return fmt.Errorf("%s texture view: %w", provider.Label(), err)
	}
	provider.SetTextureView(bindingKey, view)
	return nil
}

func (b *wgpuBackend) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, s common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sampler, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         fmt.Sprintf("%s sampler %d", provider.Label(), bindingKey),
		AddressModeU:  common.Coalesce(s.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(s.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(s.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(s.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(s.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
	})
	if err != nil {
		return fmt.Errorf("%s sampler %d: %w", provider.Label(), bindingKey, err)
	}
	provider.SetSampler(bindingKey, sampler)
	return nil
}

// checkWrite reports a write that has no buffer or runs past the end of it.
func checkWrite(w bind_group_provider.BufferWrite) error {
	if w.Provider.Buffer(w.Binding) == nil {
		return fmt.Errorf("%s: write to binding %d without a buffer", w.Provider.Label(), w.Binding)
	}
	if size := w.Provider.BufferSize(w.Binding); w.End() > size {
		return fmt.Errorf("%s: write [%d, %d) overruns binding %d of %d bytes", w.Provider.Label(), w.Offset, w.End(), w.Binding, size)
	}
	return nil
}

func (b *wgpuBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	for _, w := range writes {
		if err := checkWrite(w); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range writes {
		b.queue.WriteBuffer(w.Provider.Buffer(w.Binding), w.Offset, w.Data)
	}
	return nil
}
