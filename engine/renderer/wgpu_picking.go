package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/shading"
	"github.com/cogentcore/webgpu/wgpu"
)

// readbackRow is one texel padded to the row alignment of texture-to-buffer copies.
const readbackRow = uint64(wgpu.CopyBytesPerRowAlignment)

// readback copies single picking texels into a mappable buffer.
type readback struct {
	buffer *wgpu.Buffer
}

func newReadback(device *wgpu.Device) (*readback, error) {
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "picking readback",
		Size:  readbackRow,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("picking readback: %w", err)
	}
	return &readback{buffer: buf}, nil
}

func (r *readback) release() {
	r.buffer.Release()
}

// texel copies the texel at (x, y) of tex and blocks until it can be read.
func (r *readback) texel(device *wgpu.Device, queue *wgpu.Queue, tex *wgpu.Texture, x, y uint32) ([4]byte, error) {
	var px [4]byte

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return px, err
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: tex, Origin: wgpu.Origin3D{X: x, Y: y}, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: r.buffer,
			Layout: wgpu.TextureDataLayout{BytesPerRow: uint32(readbackRow), RowsPerImage: 1},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return px, err
	}
	queue.Submit(commands)
	commands.Release()

	var status wgpu.BufferMapAsyncStatus
	done := false
	if err := r.buffer.MapAsync(wgpu.MapModeRead, 0, readbackRow, func(s wgpu.BufferMapAsyncStatus) {
		status, done = s, true
	}); err != nil {
		return px, fmt.Errorf("map picking readback: %w", err)
	}
	device.Poll(true, nil)
	if !done || status != wgpu.BufferMapAsyncStatusSuccess {
		return px, fmt.Errorf("map picking readback: status %v", status)
	}
	copy(px[:], r.buffer.GetMappedRange(0, 4))
	r.buffer.Unmap()
	return px, nil
}

func (b *wgpuBackend) ReadPickingPixel(x, y int) (uint32, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readback == nil || b.targets == nil || !b.targets.picking {
		return 0, false, ErrPickingDisabled
	}
	t := b.targets
	if x < 0 || y < 0 || x >= int(t.width) || y >= int(t.height) {
		return 0, false, fmt.Errorf("pixel (%d, %d) outside %dx%d picking target", x, y, t.width, t.height)
	}
	px, err := b.readback.texel(b.device, b.queue, t.pickColor.texture, uint32(x), uint32(y))
	if err != nil {
		return 0, false, err
	}
	id, hit := shading.DecodePickPixel(px)
	return id, hit, nil
}
