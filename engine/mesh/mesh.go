package mesh

import (
	"strconv"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
)

// meshCount is an atomic counter used to generate unique provider labels for unnamed meshes.
var meshCount atomic.Uint64

// mesh is the implementation of the Mesh interface.
type mesh struct {
	name                  string
	vertexData, indexData []byte
	vertexCount           int
	indexCount            int
	provider              bind_group_provider.BindGroupProvider
}

// Mesh is immutable geometry shared by any number of Instances.
// The vertex and index bytes are staged on the host; the Renderer uploads them into the
// vertex and index buffers of the Mesh's BindGroupProvider.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// VertexData returns the packed vertex bytes.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the packed 32-bit index bytes, or nil for non-indexed geometry.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// VertexCount returns the number of vertices. Used for non-indexed draws.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the number of indices, zero for non-indexed geometry.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Provider returns the BindGroupProvider that holds the GPU vertex and index buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	Provider() bind_group_provider.BindGroupProvider
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh from the given options.
//
// Parameters:
//   - options: functional options supplying name, vertices and indices
//
// Returns:
//   - Mesh: the new mesh
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{}
	for _, opt := range options {
		opt(m)
	}
	if m.name == "" {
		m.name = "mesh_" + strconv.FormatUint(meshCount.Add(1), 10)
	}
	if m.provider == nil {
		m.provider = bind_group_provider.NewBindGroupProvider(m.name)
	}
	m.provider.SetCounts(m.indexCount, m.vertexCount)
	return m
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) VertexData() []byte {
	return m.vertexData
}

func (m *mesh) IndexData() []byte {
	return m.indexData
}

func (m *mesh) VertexCount() int {
	return m.vertexCount
}

func (m *mesh) IndexCount() int {
	return m.indexCount
}

func (m *mesh) Provider() bind_group_provider.BindGroupProvider {
	return m.provider
}
