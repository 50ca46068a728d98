package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightRecordSource is the canonical WGSL definition of the LightRecord struct.
// Matches GPULightRecord layout exactly (96 bytes, storage address space aligned).
//
//go:embed assets/light_record.wgsl
var GPULightRecordSource string

// GPULightRecord is one entry of the light table. Only entries below the camera's
// light_count are evaluated by the PBR pass.
// Size: 96 bytes.
type GPULightRecord struct {
	Transform [16]float32 // offset  0: light-to-world transform, position in the translation column (mat4x4<f32>)
	Color     [3]float32  // offset 64: linear RGB color (vec3<f32>)
	Intensity float32     // offset 76: scalar multiplier (f32)
	Range     float32     // offset 80: reserved for culling, not used by falloff (f32)
	_pad      [3]float32  // offset 84: padding to 96 bytes
}

// Size returns the size of the GPULightRecord struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPULightRecord) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULightRecord struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPULightRecord) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Transform[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Color[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(g.Range))
	return buf
}

// Position returns the translation column of the record's transform.
func (g *GPULightRecord) Position() [3]float32 {
	return [3]float32{g.Transform[12], g.Transform[13], g.Transform[14]}
}
