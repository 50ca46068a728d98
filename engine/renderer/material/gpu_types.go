package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialRecordSource is the canonical WGSL definition of the MaterialRecord struct.
// Matches GPUMaterialRecord layout exactly (80 bytes, storage address space aligned).
//
//go:embed assets/material_record.wgsl
var GPUMaterialRecordSource string

// GPUMaterialRecord is one entry of the material table.
// Matches the WGSL MaterialRecord struct layout exactly (see GPUMaterialRecordSource).
// Size: 80 bytes.
type GPUMaterialRecord struct {
	Albedo                [4]float32 // offset  0: linear RGBA factor (vec4<f32>)
	MetalRoughness        [2]float32 // offset 16: x = metallic, y = roughness (vec2<f32>)
	_pad0                 [2]float32 // offset 24: padding to the vec3 alignment of 16
	Emission              [3]float32 // offset 32: emissive factor (vec3<f32>)
	Occlusion             float32    // offset 44: ambient occlusion factor (f32)
	AlbedoTexture         uint32     // offset 48: texture table index (u32)
	NormalTexture         uint32     // offset 52: texture table index, 0 = flat normal (u32)
	MetalRoughnessTexture uint32     // offset 56: texture table index, G = roughness, B = metallic (u32)
	OcclusionTexture      uint32     // offset 60: texture table index, R channel (u32)
	EmissionTexture       uint32     // offset 64: texture table index (u32)
	_pad1                 [3]uint32  // offset 68: padding to 80 bytes
}

// DefaultRecord returns the record stored at material index 0: white, half metallic,
// half rough, no emission, full occlusion, every channel on the default texture.
//
// Returns:
//   - GPUMaterialRecord: the default record
func DefaultRecord() GPUMaterialRecord {
	return GPUMaterialRecord{
		Albedo:         [4]float32{1, 1, 1, 1},
		MetalRoughness: [2]float32{DefaultMetallic, DefaultRoughness},
		Occlusion:      1,
	}
}

// Size returns the size of the GPUMaterialRecord struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (80)
func (g *GPUMaterialRecord) Size() int {
	return int(unsafe.Sizeof(*g))
}

// TextureIndices returns the five channel indices in Channel order.
func (g *GPUMaterialRecord) TextureIndices() [ChannelCount]uint32 {
	return [ChannelCount]uint32{
		g.AlbedoTexture,
		g.NormalTexture,
		g.MetalRoughnessTexture,
		g.OcclusionTexture,
		g.EmissionTexture,
	}
}

// Marshal serializes the GPUMaterialRecord struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUMaterialRecord) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Albedo[i]))
	}
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.MetalRoughness[0]))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(g.MetalRoughness[1]))
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.Emission[i]))
	}
	binary.LittleEndian.PutUint32(buf[44:], math.Float32bits(g.Occlusion))
	for i, idx := range g.TextureIndices() {
		binary.LittleEndian.PutUint32(buf[48+i*4:], idx)
	}
	return buf
}
