package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// resource is what backs one binding: a buffer with the size and usage it was created with,
// a texture view or a sampler.
type resource struct {
	buffer  *wgpu.Buffer
	size    uint64
	usage   wgpu.BufferUsage
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

func (r *resource) release() {
	if r.buffer != nil {
		r.buffer.Release()
	}
	if r.view != nil {
		r.view.Release()
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	*r = resource{}
}

// geometry is the uploaded vertex and index data of a mesh provider.
type geometry struct {
	vertices, indices       *wgpu.Buffer
	vertexCount, indexCount int
}

type bindGroupProvider struct {
	label     string
	bindGroup *wgpu.BindGroup
	bindings  map[int]*resource

	// per-draw slots of a dynamic-offset buffer; stride is zero for static providers
	stride uint64
	slots  int

	geometry geometry
}

// BindGroupProvider owns the GPU objects behind one bind group identity (camera, meshes,
// materials, lights, a pass payload, grid) or, for meshes, the vertex and index buffers of one
// geometry. The Scene creates the providers and the Renderer fills them in.
//
// Setters take ownership: replacing a buffer, view, sampler or bind group releases the previous one.
// Replacing anything a bind group references also drops the bind group, so the next
// Renderer.InitBindGroup rebuilds it.
type BindGroupProvider interface {
	// Label returns the debug label, also used to name GPU objects.
	Label() string

	// BindGroup returns the bind group, nil until the Renderer has created one.
	BindGroup() *wgpu.BindGroup

	// SetBindGroup stores a freshly created bind group.
	SetBindGroup(bg *wgpu.BindGroup)

	// Invalidate releases the bind group and keeps everything it referenced.
	Invalidate()

	// Buffer returns the buffer at a binding, nil if none was created.
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the size the buffer at a binding was created with, zero without one.
	BufferSize(binding int) uint64

	// BufferUsage returns the usage the buffer at a binding was created with.
	BufferUsage(binding int) wgpu.BufferUsage

	// SetBuffer stores a buffer at a binding. A nil buffer clears the binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	//   - size: its size in bytes, the bound for later writes
	//   - usage: its usage, reused when the buffer is grown
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage)

	// TextureView returns the view at a binding, nil if none was created.
	TextureView(binding int) *wgpu.TextureView

	// SetTextureView stores a texture view at a binding.
	SetTextureView(binding int, view *wgpu.TextureView)

	// Sampler returns the sampler at a binding, nil if none was created.
	Sampler(binding int) *wgpu.Sampler

	// SetSampler stores a sampler at a binding.
	SetSampler(binding int, s *wgpu.Sampler)

	// Dynamic reports whether the provider's buffers are bound with a per-draw offset.
	Dynamic() bool

	// DynamicStride returns the byte distance between per-draw slots, zero for static providers.
	DynamicStride() uint64

	// DynamicOffset returns the byte offset of a slot.
	//
	// Parameters:
	//   - slot: the draw's slot index
	//
	// Returns:
	//   - uint32: slot * DynamicStride()
	DynamicOffset(slot int) uint32

	// Slots returns the number of per-draw slots a dynamic buffer is sized for.
	Slots() int

	// VertexBuffer returns the uploaded vertex buffer, nil before upload.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the uploaded uint32 index buffer, nil for non-indexed geometry.
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices an indexed draw consumes.
	IndexCount() int

	// VertexCount returns the number of vertices a non-indexed draw consumes.
	VertexCount() int

	// SetCounts records the draw counts of the geometry.
	SetCounts(indexCount, vertexCount int)

	// SetGeometry stores uploaded vertex and index buffers. index may be nil.
	SetGeometry(vertices, indices *wgpu.Buffer)

	// Release releases everything the provider owns.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label, usually the bind group identity or mesh name
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		bindings: make(map[int]*resource),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// binding returns the resource at a binding, creating an empty one.
func (p *bindGroupProvider) binding(binding int) *resource {
	r, ok := p.bindings[binding]
	if !ok {
		r = &resource{}
		p.bindings[binding] = r
	}
	return r
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.Invalidate()
	p.bindGroup = bg
}

func (p *bindGroupProvider) Invalidate() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	if r, ok := p.bindings[binding]; ok {
		return r.buffer
	}
	return nil
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	if r, ok := p.bindings[binding]; ok {
		return r.size
	}
	return 0
}

func (p *bindGroupProvider) BufferUsage(binding int) wgpu.BufferUsage {
	if r, ok := p.bindings[binding]; ok {
		return r.usage
	}
	return 0
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.Invalidate()
	r := p.binding(binding)
	r.release()
	if buf == nil {
		delete(p.bindings, binding)
		return
	}
	r.buffer, r.size, r.usage = buf, size, usage
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	if r, ok := p.bindings[binding]; ok {
		return r.view
	}
	return nil
}

func (p *bindGroupProvider) SetTextureView(binding int, view *wgpu.TextureView) {
	p.Invalidate()
	r := p.binding(binding)
	r.release()
	r.view = view
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	if r, ok := p.bindings[binding]; ok {
		return r.sampler
	}
	return nil
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.Invalidate()
	r := p.binding(binding)
	r.release()
	r.sampler = s
}

func (p *bindGroupProvider) Dynamic() bool {
	return p.stride > 0
}

func (p *bindGroupProvider) DynamicStride() uint64 {
	return p.stride
}

func (p *bindGroupProvider) DynamicOffset(slot int) uint32 {
	return uint32(uint64(slot) * p.stride)
}

func (p *bindGroupProvider) Slots() int {
	return p.slots
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.geometry.vertices
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.geometry.indices
}

func (p *bindGroupProvider) IndexCount() int {
	return p.geometry.indexCount
}

func (p *bindGroupProvider) VertexCount() int {
	return p.geometry.vertexCount
}

func (p *bindGroupProvider) SetCounts(indexCount, vertexCount int) {
	p.geometry.indexCount = indexCount
	p.geometry.vertexCount = vertexCount
}

func (p *bindGroupProvider) SetGeometry(vertices, indices *wgpu.Buffer) {
	p.releaseGeometry()
	p.geometry.vertices = vertices
	p.geometry.indices = indices
}

func (p *bindGroupProvider) releaseGeometry() {
	if p.geometry.vertices != nil {
		p.geometry.vertices.Release()
		p.geometry.vertices = nil
	}
	if p.geometry.indices != nil {
		p.geometry.indices.Release()
		p.geometry.indices = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.Invalidate()
	for binding, r := range p.bindings {
		r.release()
		delete(p.bindings, binding)
	}
	p.releaseGeometry()
}
