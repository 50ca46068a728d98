package texture

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUTextureEntrySource is the canonical WGSL definition of the TextureEntry struct.
// Matches GPUTextureEntry layout exactly (8 bytes).
//
//go:embed assets/texture_entry.wgsl
var GPUTextureEntrySource string

// GPUTextureEntry is one entry of the texture table: which array layer holds the image and
// which of the fixed samplers reads it.
// Size: 8 bytes.
type GPUTextureEntry struct {
	Layer   uint32 // offset 0: layer of the texture array (u32)
	Sampler uint32 // offset 4: SamplerMode (u32)
}

// Size returns the size of the GPUTextureEntry struct in bytes.
func (g *GPUTextureEntry) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTextureEntry struct into a byte buffer suitable for GPU upload.
func (g *GPUTextureEntry) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], g.Layer)
	binary.LittleEndian.PutUint32(buf[4:], g.Sampler)
	return buf
}

// SamplerMode selects one of the samplers bound next to the texture array.
type SamplerMode uint32

const (
	// SamplerLinearRepeat filters linearly and wraps. Used by the default texture.
	SamplerLinearRepeat SamplerMode = iota
	// SamplerLinearClamp filters linearly and clamps to the edge.
	SamplerLinearClamp
	// SamplerNearestRepeat picks the nearest texel and wraps.
	SamplerNearestRepeat

	// SamplerModeCount is the number of sampler modes, and the number of sampler bindings.
	SamplerModeCount
)

func (m SamplerMode) String() string {
	switch m {
	case SamplerLinearRepeat:
		return "linear_repeat"
	case SamplerLinearClamp:
		return "linear_clamp"
	case SamplerNearestRepeat:
		return "nearest_repeat"
	default:
		return "unknown"
	}
}

// Staging returns the sampler description the renderer creates for this mode.
//
// Returns:
//   - common.SamplerStagingData: the sampler configuration
func (m SamplerMode) Staging() common.SamplerStagingData {
	s := common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	switch m {
	case SamplerLinearClamp:
		s.AddressModeU = wgpu.AddressModeClampToEdge
		s.AddressModeV = wgpu.AddressModeClampToEdge
		s.AddressModeW = wgpu.AddressModeClampToEdge
	case SamplerNearestRepeat:
		s.MagFilter = wgpu.FilterModeNearest
		s.MinFilter = wgpu.FilterModeNearest
	}
	return s
}
