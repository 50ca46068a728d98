package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (160 bytes, uniform address space aligned).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 160 bytes.
type GPUCameraUniform struct {
	ProjView     [16]float32 // offset   0: projection * view (mat4x4<f32>)
	UnprojView   [16]float32 // offset  64: inverse of ProjView (mat4x4<f32>)
	ViewPosition [4]float32  // offset 128: world-space eye position, w = 1 (vec4<f32>)
	LightCount   uint32      // offset 144: number of live entries in the light table (u32)
	_pad         [3]uint32   // offset 148: padding to 160 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ProjView[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.UnprojView[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.ViewPosition[i]))
	}
	binary.LittleEndian.PutUint32(buf[144:], g.LightCount)
	return buf
}
