package renderer

import (
	"fmt"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/logger"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu  sync.Mutex
	log *zap.Logger
	cfg backendConfig

	pipelines map[string]pipeline.Pipeline
	backend   RendererBackend
}

// Renderer draws a frame as a surface pass optionally followed by a picking pass. It caches
// compiled pipelines by key and hands GPU objects to BindGroupProviders; callers decide what
// gets bound and drawn.
//
// A frame is BeginFrame, DrawCall for each surface draw, BeginPickingPass, DrawCall for each
// picking draw, EndFrame and Present.
type Renderer interface {
	// Pipeline returns the cached pipeline under key, nil if none.
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the pipeline cache.
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines compiles and caches pipelines. Keys already cached are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to compile
	//
	// Returns:
	//   - error: the first compilation failure; pipelines before it stay cached
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// RebuildPipeline compiles p and caches it under its key, releasing the pipeline it replaces.
	// On failure the previous pipeline stays in use.
	RebuildPipeline(p pipeline.Pipeline) error

	// Resize reconfigures the surface and recreates the size-dependent targets. Zero sizes
	// (a minimized window) are ignored.
	Resize(width, height int)

	// Size returns the configured surface size in pixels.
	Size() (int, int)

	// InitMeshBuffers uploads a geometry's vertex and uint32 index data onto provider.
	//
	// Parameters:
	//   - provider: the mesh's provider
	//   - vertexData: interleaved vertex bytes
	//   - indexData: index bytes, empty for non-indexed geometry
	//   - indexCount: indices per indexed draw
	//   - vertexCount: vertices per non-indexed draw
	//
	// Returns:
	//   - error: an error if there is no vertex data or buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount, vertexCount int) error

	// InitBindGroup creates the bind group for group index `group` of a compiled pipeline,
	// creating any buffers provider lacks. Texture views and samplers must already be on provider.
	//
	// Parameters:
	//   - provider: receives the buffers and bind group
	//   - p: the compiled pipeline whose layout is used
	//   - group: the group index within p
	//   - bufferSizeOverrides: minimum buffer sizes keyed by binding (nil safe)
	//
	// Returns:
	//   - error: an error if p declares nothing at group or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int, bufferSizeOverrides map[int]uint64) error

	// EnsureBufferCapacity grows a provider's buffer to hold size bytes. A grown buffer drops
	// the provider's bind group, which the caller rebuilds with InitBindGroup.
	//
	// Returns:
	//   - bool: true if the buffer was recreated
	//   - error: an error if the provider has no buffer at binding
	EnsureBufferCapacity(provider bind_group_provider.BindGroupProvider, binding int, size uint64) (bool, error)

	// InitTextureView uploads stagingData as a 2D array texture and stores its view at bindingKey.
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler and stores it at bindingKey.
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers queues the frame's buffer writes. Nothing is written if any write has no
	// buffer or overruns it.
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame acquires the swapchain texture and begins the surface pass.
	BeginFrame() error

	// BeginPickingPass switches the current frame to the picking pass.
	//
	// Returns:
	//   - error: ErrNoFrame or ErrPickingDisabled
	BeginPickingPass() error

	// DrawCall draws meshProvider's geometry with the cached pipeline under pipelineKey.
	//
	// Parameters:
	//   - pipelineKey: the cached pipeline
	//   - meshProvider: holds the vertex and index buffers
	//   - bindings: one provider per bind group index, with the payload slot of the draw
	//
	// Returns:
	//   - error: an unknown key, a target mismatch or a binding without a bind group
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, bindings []Binding) error

	// EndFrame ends the active pass and submits the frame.
	EndFrame()

	// Present shows the submitted frame.
	Present()

	// ReadPickingPixel reads the identifier under a pixel from the last submitted picking pass.
	//
	// Parameters:
	//   - x, y: surface coordinates, origin top-left
	//
	// Returns:
	//   - uint32: the identifier
	//   - bool: false for background
	//   - error: ErrPickingDisabled, an out of bounds pixel or a readback failure
	ReadPickingPixel(x, y int) (uint32, bool, error)

	// SetPresentMode sets the present mode; it takes effect on the next Resize.
	SetPresentMode(mode PresentMode)

	// Release releases every cached pipeline and the device.
	Release()
}

var _ Renderer = &renderer{}

// SurfaceSource is what a renderer needs from a window: somewhere to present and its size.
// window.Window satisfies it.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Size() (width, height int)
}

// NewRenderer opens a device for the window's surface and configures the surface at the
// window's size.
//
// Parameters:
//   - backendType: the GPU backend, BackendTypeWGPU
//   - surface: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device is available or the surface cannot be configured
func NewRenderer(backendType RendererBackendType, surface SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		log:       logger.Named("renderer"),
		cfg:       defaultBackendConfig(),
		pipelines: make(map[string]pipeline.Pipeline),
	}
	// options first: the adapter request depends on them
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		b, err := newWGPUBackend(surface.SurfaceDescriptor(), r.cfg, r.log)
		if err != nil {
			return nil, err
		}
		r.backend = b
	default:
		return nil, fmt.Errorf("unknown renderer backend %d", backendType)
	}

	if err := r.backend.ConfigureSurface(surface.Size()); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		r.log.Error("resize failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
	}
}

func (r *renderer) Size() (int, int) {
	return r.backend.Size()
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelines)
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelines[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register %s: %w", key, err)
		}
		r.pipelines[key] = p
	}
	return nil
}

func (r *renderer) RebuildPipeline(p pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := p.PipelineKey()
	if err := r.backend.RegisterRenderPipeline(p); err != nil {
		r.log.Warn("pipeline rebuild failed, keeping previous", zap.String("pipeline", key), zap.Error(err))
		return fmt.Errorf("rebuild %s: %w", key, err)
	}
	if old, ok := r.pipelines[key]; ok && old != p {
		old.Release()
	}
	r.pipelines[key] = p
	return nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount, vertexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount, vertexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int, bufferSizeOverrides map[int]uint64) error {
	layouts := p.BindGroupLayouts()
	if group < 0 || group >= len(layouts) {
		return fmt.Errorf("%s: pipeline %s has no group %d", provider.Label(), p.PipelineKey(), group)
	}
	descriptor, ok := p.Layouts()[group]
	if !ok {
		return fmt.Errorf("%s: pipeline %s declares nothing in group %d", provider.Label(), p.PipelineKey(), group)
	}
	return r.backend.InitBindGroup(provider, descriptor, layouts[group], bufferSizeOverrides)
}

func (r *renderer) EnsureBufferCapacity(provider bind_group_provider.BindGroupProvider, binding int, size uint64) (bool, error) {
	return r.backend.EnsureBufferCapacity(provider, binding, size)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) BeginPickingPass() error {
	return r.backend.BeginPickingPass()
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, bindings []Binding) error {
	r.mu.Lock()
	p, exists := r.pipelines[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	return r.backend.DrawCall(p, meshProvider, bindings)
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) ReadPickingPixel(x, y int) (uint32, bool, error) {
	return r.backend.ReadPickingPixel(x, y)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.pipelines {
		p.Release()
		delete(r.pipelines, key)
	}
	r.backend.Release()
	r.log.Debug("renderer released")
}
