package shading

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// MaxPickID is the first identifier that no longer fits in the RGB channels of the picking target.
const MaxPickID uint32 = 1 << 24

// ErrPickIDOverflow is returned when an identifier does not fit in 24 bits.
var ErrPickIDOverflow = errors.New("pick id overflow")

// EncodePickID spreads k little-endian over R, G and B as byte/255 and sets A to 1.
//
// Parameters:
//   - k: the identifier, below MaxPickID
//
// Returns:
//   - [4]float32: the identifier color
//   - error: ErrPickIDOverflow if k does not fit
func EncodePickID(k uint32) ([4]float32, error) {
	if k >= MaxPickID {
		return [4]float32{}, fmt.Errorf("encode %d: %w", k, ErrPickIDOverflow)
	}
	return [4]float32{
		float32(k&0xFF) / 255,
		float32((k>>8)&0xFF) / 255,
		float32((k>>16)&0xFF) / 255,
		1,
	}, nil
}

// DecodePickColor inverts EncodePickID on a color read back as floats.
//
// Returns:
//   - uint32: the identifier
//   - bool: false for background (alpha 0)
func DecodePickColor(c [4]float32) (uint32, bool) {
	if c[3] < 0.5 {
		return 0, false
	}
	r := uint32(math32.Round(c[0] * 255))
	g := uint32(math32.Round(c[1] * 255))
	b := uint32(math32.Round(c[2] * 255))
	return r | g<<8 | b<<16, true
}

// DecodePickPixel decodes one RGBA8 texel read back from the picking target.
//
// Returns:
//   - uint32: the identifier
//   - bool: false for background (alpha 0)
func DecodePickPixel(px [4]byte) (uint32, bool) {
	if px[3] == 0 {
		return 0, false
	}
	return uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16, true
}
