package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresentMode(t *testing.T) {
	tests := []struct {
		in   string
		mode PresentMode
		gpu  wgpu.PresentMode
	}{
		{"fifo", PresentModeVSync, wgpu.PresentModeFifo},
		{"mailbox", PresentModeMailbox, wgpu.PresentModeMailbox},
		{"immediate", PresentModeUncapped, wgpu.PresentModeImmediate},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mode, err := ParsePresentMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, mode)
			assert.Equal(t, tt.gpu, mode.wgpu())
		})
	}

	_, err := ParsePresentMode("vsync")
	assert.Error(t, err)
}

func TestBuilderOptions(t *testing.T) {
	r := &renderer{cfg: defaultBackendConfig()}
	assert.Equal(t, MSAA4x, r.cfg.samples)
	assert.True(t, r.cfg.picking)

	for _, opt := range []RendererBuilderOption{
		WithMSAA(MSAASampleCount(8)),
		WithPicking(false),
		WithSoftwareAdapter(true),
		WithPresentMode(PresentModeMailbox),
		WithClearColor(0.25, 0.5),
	} {
		opt(r)
	}
	assert.Equal(t, MSAA4x, r.cfg.samples, "unsupported counts fall back to 4x")
	assert.False(t, r.cfg.picking)
	assert.True(t, r.cfg.fallbackAdapter)
	assert.Equal(t, PresentModeMailbox, r.cfg.presentMode)
	assert.Equal(t, wgpu.Color{R: 0.25, G: 0.5, B: 0, A: 1}, r.cfg.clearColor)

	WithMSAA(MSAAOff)(r)
	assert.Equal(t, MSAAOff, r.cfg.samples)
}

func TestGrownSizeDoubles(t *testing.T) {
	assert.Equal(t, uint64(1024), grownSize(256, 1000))
	assert.Equal(t, uint64(256), grownSize(256, 256))
	assert.Equal(t, uint64(64), grownSize(0, 40))
}

func TestBindingSize(t *testing.T) {
	assert.Equal(t, uint64(256), bindingSize(true, 256))
	assert.Equal(t, uint64(wgpu.WholeSize), bindingSize(false, 256))
}

func TestSurfacePassResolvesWhenMultisampled(t *testing.T) {
	clear := wgpu.Color{R: 1, A: 1}

	single := &renderTargets{samples: 1}
	d := single.surfacePass(nil, clear)
	require.Len(t, d.ColorAttachments, 1)
	assert.Nil(t, d.ColorAttachments[0].ResolveTarget)
	assert.Equal(t, wgpu.StoreOpStore, d.ColorAttachments[0].StoreOp)
	assert.Equal(t, clear, d.ColorAttachments[0].ClearValue)

	multi := &renderTargets{samples: 4}
	d = multi.surfacePass(nil, clear)
	assert.Equal(t, wgpu.StoreOpDiscard, d.ColorAttachments[0].StoreOp)
	assert.Equal(t, float32(1), d.DepthStencilAttachment.DepthClearValue)

	pick := multi.pickingPass()
	assert.Equal(t, wgpu.Color{}, pick.ColorAttachments[0].ClearValue, "background decodes as a miss")
}

func TestColorFormatPerTarget(t *testing.T) {
	targets := &renderTargets{format: wgpu.TextureFormatBGRA8Unorm, samples: 4}

	format, samples := targets.colorFormat(pipeline.TargetSurface)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, format)
	assert.Equal(t, uint32(4), samples)

	format, samples = targets.colorFormat(pipeline.TargetPicking)
	assert.Equal(t, PickingFormat, format)
	assert.Equal(t, uint32(1), samples)
}

func TestDynamicOffsetsRejectUnboundGroups(t *testing.T) {
	static := bind_group_provider.NewBindGroupProvider("camera")
	_, err := dynamicOffsets("pbr", []Binding{{Provider: static}})
	assert.ErrorContains(t, err, "group 0 has no bind group")

	_, err = dynamicOffsets("pbr", []Binding{{}})
	assert.Error(t, err)

	offsets, err := dynamicOffsets("pbr", nil)
	require.NoError(t, err)
	assert.Empty(t, offsets)
}

func TestCheckWriteNeedsBuffer(t *testing.T) {
	p := bind_group_provider.NewBindGroupProvider("lights")
	err := checkWrite(bind_group_provider.BufferWrite{Provider: p, Binding: 0, Data: make([]byte, 16)})
	assert.ErrorContains(t, err, "without a buffer")
}
