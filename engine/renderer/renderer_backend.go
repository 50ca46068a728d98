package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoFrame is returned when a draw or pass switch is issued outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("no frame in progress")

	// ErrPickingDisabled is returned by picking operations when the renderer was built without a picking target.
	ErrPickingDisabled = errors.New("picking target disabled")

	// ErrTargetMismatch is returned when a pipeline is drawn into a pass of a different target.
	ErrTargetMismatch = errors.New("pipeline target does not match active pass")

	// ErrSurfaceNotConfigured is returned before the first successful Resize.
	ErrSurfaceNotConfigured = errors.New("surface not configured")
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately. Lowest latency, may tear.
	PresentModeUncapped

	// PresentModeMailbox replaces the queued frame with the newest one without tearing.
	PresentModeMailbox
)

// wgpu maps the mode onto the surface present mode.
func (m PresentMode) wgpu() wgpu.PresentMode {
	switch m {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeMailbox:
		return wgpu.PresentModeMailbox
	default:
		return wgpu.PresentModeFifo
	}
}

// ParsePresentMode maps a configuration value to a PresentMode.
//
// Parameters:
//   - s: one of "fifo", "mailbox" or "immediate"
//
// Returns:
//   - PresentMode: the matching mode
//   - error: an error if s is not a known mode
func ParsePresentMode(s string) (PresentMode, error) {
	switch s {
	case "fifo":
		return PresentModeVSync, nil
	case "mailbox":
		return PresentModeMailbox, nil
	case "immediate":
		return PresentModeUncapped, nil
	default:
		return PresentModeVSync, fmt.Errorf("unknown present mode %q", s)
	}
}

// MSAASampleCount is the sample count of the surface pass. WebGPU guarantees 1 and 4, the only
// counts the renderer accepts. The picking target is always single-sampled.
type MSAASampleCount uint32

const (
	// MSAAOff renders the surface pass single-sampled.
	MSAAOff MSAASampleCount = 1

	// MSAA4x renders the surface pass with four samples and resolves into the swapchain. Default.
	MSAA4x MSAASampleCount = 4
)

// PickingFormat is the color format of the offscreen picking target. Identifiers are packed
// little-endian into R, G and B; A marks a hit.
const PickingFormat = wgpu.TextureFormatRGBA8Unorm

// DepthFormat is the depth format shared by the surface and picking targets.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// Binding pairs a BindGroupProvider with the payload slot a draw reads from it. Slot is
// ignored for providers without a dynamic offset.
type Binding struct {
	Provider bind_group_provider.BindGroupProvider
	Slot     int
}

// backendConfig is what the backend needs before it opens a device.
type backendConfig struct {
	fallbackAdapter bool
	samples         MSAASampleCount
	picking         bool
	presentMode     PresentMode
	clearColor      wgpu.Color
}

func defaultBackendConfig() backendConfig {
	return backendConfig{
		samples:     MSAA4x,
		picking:     true,
		presentMode: PresentModeVSync,
		clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
	}
}

// RendererBackend is the GPU API behind the Renderer. The Renderer resolves pipeline keys and
// group indices; the backend owns the device, the render targets and the frame in flight.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain and recreates the size-dependent targets.
	// A zero size keeps the previous configuration.
	ConfigureSurface(width, height int) error

	// Size returns the configured surface size.
	Size() (int, int)

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline compiles p against the configured targets and stores the result on p.
	// Registering again rebuilds it and releases the previous GPU objects.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitMeshBuffers uploads vertex and uint32 index data and stores the buffers and draw counts
	// on the provider. indexData may be empty for non-indexed geometry.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount, vertexCount int) error

	// InitBindGroup creates the missing buffers of descriptor's buffer entries and a bind group
	// against layout. Dynamic-offset buffers hold provider.Slots() slots and bind one stride wide.
	//
	// Parameters:
	//   - provider: receives the buffers and the bind group
	//   - descriptor: the entries of the group
	//   - layout: the GPU layout, owned by the pipeline that created it
	//   - bufferSizeOverrides: minimum sizes keyed by binding (nil safe)
	//
	// Returns:
	//   - error: a missing view or sampler, or a GPU creation failure
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, layout *wgpu.BindGroupLayout, bufferSizeOverrides map[int]uint64) error

	// EnsureBufferCapacity grows a provider's buffer to at least size bytes by doubling.
	EnsureBufferCapacity(provider bind_group_provider.BindGroupProvider, binding int, size uint64) (bool, error)

	// InitTextureView uploads the layers of stagingData into a 2D array texture.
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler, filling zero fields with repeat addressing and linear filtering.
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers queues every write, or none when any write has no buffer or overruns it.
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame acquires the swapchain texture and begins the surface pass.
	BeginFrame() error

	// BeginPickingPass ends the surface pass and begins the picking pass on the same encoder.
	BeginPickingPass() error

	// DrawCall encodes one draw into the active pass. Bindings are checked before anything is encoded.
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, bindings []Binding) error

	// EndFrame ends the active pass and submits the frame.
	EndFrame()

	// Present shows the submitted frame and releases the swapchain texture.
	Present()

	// ReadPickingPixel reads back and decodes one texel of the last submitted picking pass.
	ReadPickingPixel(x, y int) (uint32, bool, error)

	// Release releases the render targets, the readback buffer and the device.
	Release()
}
