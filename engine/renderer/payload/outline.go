package payload

import "github.com/chewxy/math32"

// toByte clamps v to [0, 1] and quantizes it to 0..255.
func toByte(v float32) uint32 {
	if math32.IsNaN(v) {
		return 0
	}
	v = max(0, min(v, 1))
	return uint32(math32.Round(v * 255))
}

// EncodeOutline packs an outline color and width into r<<24 | g<<16 | b<<8 | width.
// Every component saturates to [0, 1] before quantization, so the width never decodes above 1.
//
// Parameters:
//   - color: linear RGB in [0, 1]
//   - width: dilation as a fraction of the object's size, in [0, 1]
//
// Returns:
//   - uint32: the packed outline, zero only when color and width are all zero
func EncodeOutline(color [3]float32, width float32) uint32 {
	return toByte(color[0])<<24 | toByte(color[1])<<16 | toByte(color[2])<<8 | toByte(width)
}

// DecodeOutline unpacks a value produced by EncodeOutline.
//
// Parameters:
//   - outline: the packed outline
//
// Returns:
//   - color: RGB, each byte/255
//   - width: low byte/255
func DecodeOutline(outline uint32) (color [3]float32, width float32) {
	color = [3]float32{
		float32((outline>>24)&0xFF) / 255,
		float32((outline>>16)&0xFF) / 255,
		float32((outline>>8)&0xFF) / 255,
	}
	width = float32(outline&0xFF) / 255
	return color, width
}
