package shading

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GridParamsSource is the WGSL definition of the grid pass uniform.
//
//go:embed assets/grid_params.wgsl
var GridParamsSource string

// GridParams configures the infinite grid. It is uploaded as-is to the grid pass uniform.
// Size: 16 bytes.
type GridParams struct {
	Spacing      float32 // offset 0: world units between lines (f32)
	AxisWidth    float32 // offset 4: axis line half-width, scaled by the screen derivative (f32)
	FadeDistance float32 // offset 8: distance from the eye where alpha reaches zero (f32)
	_pad         float32 // offset 12: padding to 16 bytes
}

// Size returns the size of the GridParams struct in bytes.
func (g *GridParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GridParams struct into a byte buffer suitable for GPU upload.
func (g *GridParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.Spacing))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.AxisWidth))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.FadeDistance))
	return buf
}
