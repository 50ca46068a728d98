// Package common holds the plain data types and math shared by the engine packages.
package common

import "github.com/cogentcore/webgpu/wgpu"

// TextureStagingData is RGBA8 pixel data waiting to be copied into a 2D array texture.
// Layers are packed back to back and share one size.
type TextureStagingData struct {
	Pixels []byte // Layers * Width * Height * 4 bytes
	Width  uint32
	Height uint32
	Layers uint32 // zero means one layer
}

// LayerCount returns Layers, or 1 when Layers is zero.
func (t TextureStagingData) LayerCount() uint32 {
	return max(t.Layers, 1)
}

// SamplerStagingData describes a sampler to create for a bind group provider binding.
type SamplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode

	MagFilter, MinFilter wgpu.FilterMode
	MipmapFilter         wgpu.MipmapFilterMode

	// zero LodMaxClamp and MaxAnisotropy take the backend defaults, 32 and 1
	LodMinClamp, LodMaxClamp float32
	MaxAnisotropy            uint16
}
