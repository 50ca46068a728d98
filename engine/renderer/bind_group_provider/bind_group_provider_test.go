package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestNewBindGroupProviderIsEmpty(t *testing.T) {
	p := NewBindGroupProvider("materials")
	assert.Equal(t, "materials", p.Label())
	assert.False(t, p.Dynamic())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.Buffer(0))
	assert.Zero(t, p.BufferSize(0))
	assert.Nil(t, p.TextureView(1))
	assert.Nil(t, p.Sampler(2))
}

func TestDynamicSlots(t *testing.T) {
	p := NewBindGroupProvider("payload", WithDynamicSlots(256, 12))
	assert.True(t, p.Dynamic())
	assert.Equal(t, uint64(256), p.DynamicStride())
	assert.Equal(t, 12, p.Slots())
	assert.Equal(t, uint32(0), p.DynamicOffset(0))
	assert.Equal(t, uint32(768), p.DynamicOffset(3))

	empty := NewBindGroupProvider("payload", WithDynamicSlots(256, 0))
	assert.Equal(t, 1, empty.Slots(), "a dynamic buffer always holds one slot")
}

func TestNilBufferClearsBinding(t *testing.T) {
	p := NewBindGroupProvider("lights")
	p.SetBuffer(0, nil, 96, wgpu.BufferUsageStorage)
	assert.Nil(t, p.Buffer(0))
	assert.Zero(t, p.BufferSize(0))
	assert.Zero(t, p.BufferUsage(0))
}

func TestCountsAndRelease(t *testing.T) {
	p := NewBindGroupProvider("cube")
	p.SetCounts(36, 24)
	assert.Equal(t, 36, p.IndexCount())
	assert.Equal(t, 24, p.VertexCount())

	p.SetGeometry(nil, nil)
	p.SetTextureView(1, nil)
	p.SetSampler(2, nil)
	p.Release()
	p.Invalidate()
	assert.Nil(t, p.VertexBuffer())
	assert.Nil(t, p.IndexBuffer())
	assert.Equal(t, 36, p.IndexCount(), "counts describe the mesh, not the upload")
}

func TestBufferWriteEnd(t *testing.T) {
	w := BufferWrite{Offset: 512, Data: make([]byte, 32)}
	assert.Equal(t, uint64(544), w.End())
}
