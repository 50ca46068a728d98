package mesh

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithName sets the mesh identifier. It is also used as the provider label.
//
// Parameters:
//   - name: the mesh name
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithVertices packs lit vertices into the mesh's vertex data.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - MeshBuilderOption: a function that applies the vertices option to a mesh
func WithVertices(vertices []GPUVertex) MeshBuilderOption {
	return func(m *mesh) {
		m.vertexData = MarshalVertices(vertices)
		m.vertexCount = len(vertices)
	}
}

// WithGridVertices packs clip-space grid vertices into the mesh's vertex data.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - MeshBuilderOption: a function that applies the vertices option to a mesh
func WithGridVertices(vertices []GPUGridVertex) MeshBuilderOption {
	return func(m *mesh) {
		buf := make([]byte, 0, len(vertices)*8)
		for i := range vertices {
			buf = append(buf, vertices[i].Marshal()...)
		}
		m.vertexData = buf
		m.vertexCount = len(vertices)
	}
}

// WithIndices packs 32-bit triangle-list indices into the mesh's index data.
//
// Parameters:
//   - indices: the indices to pack
//
// Returns:
//   - MeshBuilderOption: a function that applies the indices option to a mesh
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.indexData = MarshalIndices(indices)
		m.indexCount = len(indices)
	}
}
