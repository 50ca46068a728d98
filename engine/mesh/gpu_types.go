package mesh

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for lit mesh pipelines.
// Matches GPUVertex layout exactly (48 bytes, attributes tightly packed).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is the GPU representation of a single mesh vertex.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 48 bytes. Vertex attributes only require 4-byte alignment, so no padding is inserted.
type GPUVertex struct {
	Position [3]float32 // offset  0: model-space position (12 bytes)
	Normal   [3]float32 // offset 12: model-space normal (12 bytes)
	Tangent  [4]float32 // offset 24: tangent xyz + handedness w (16 bytes)
	UV       [2]float32 // offset 40: texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 48)
	putFloats(buf[0:], g.Position[:])
	putFloats(buf[12:], g.Normal[:])
	putFloats(buf[24:], g.Tangent[:])
	putFloats(buf[40:], g.UV[:])
	return buf
}

// GPUGridVertexSource is the canonical WGSL definition of the GridVertexInput struct.
//
//go:embed assets/grid_vertex.wgsl
var GPUGridVertexSource string

// GPUGridVertex is a clip-space corner of the full-screen grid quad.
// Size: 8 bytes.
type GPUGridVertex struct {
	Position [2]float32 // offset 0: clip-space xy in [-1, 1]
}

// Size returns the size of the GPUGridVertex struct in bytes.
func (g *GPUGridVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUGridVertex struct into a byte buffer suitable for GPU upload.
func (g *GPUGridVertex) Marshal() []byte {
	buf := make([]byte, 8)
	putFloats(buf, g.Position[:])
	return buf
}

// GPUMeshRecordSource is the canonical WGSL definition of the MeshRecord struct.
// Matches GPUMeshRecord layout exactly (160 bytes, storage address space aligned).
//
//go:embed assets/mesh_record.wgsl
var GPUMeshRecordSource string

// GPUMeshRecord is one entry of the mesh table, indexed by the per-draw payload's mesh index.
// Matches the WGSL MeshRecord struct layout exactly (see GPUMeshRecordSource).
// Size: 160 bytes.
type GPUMeshRecord struct {
	MaterialID uint32      // offset   0: index into the material table (u32)
	_pad0      [3]uint32   // offset   4: padding to the mat4 alignment of 16
	Model      [16]float32 // offset  16: model-to-world transform (mat4x4<f32>)
	Normal     [16]float32 // offset  80: inverse-transpose of Model's upper 3x3, translation zeroed (mat4x4<f32>)
	Scale      [3]float32  // offset 144: per-axis instance scale (vec3<f32>)
	_pad1      float32     // offset 156: padding to 160 bytes
}

// Size returns the size of the GPUMeshRecord struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (160)
func (g *GPUMeshRecord) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMeshRecord struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 160-byte buffer ready for GPU upload.
func (g *GPUMeshRecord) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.MaterialID)
	putFloats(buf[16:], g.Model[:])
	putFloats(buf[80:], g.Normal[:])
	putFloats(buf[144:], g.Scale[:])
	return buf
}

// MarshalVertices packs a vertex slice back to back.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - []byte: len(vertices) * 48 bytes
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, 0, len(vertices)*48)
	for i := range vertices {
		buf = append(buf, vertices[i].Marshal()...)
	}
	return buf
}

// MarshalIndices packs 32-bit indices little-endian.
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

func putFloats(buf []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}
