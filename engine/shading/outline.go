package shading

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
)

// DilateLocal scales a local position by (1 + width) where width is decoded from the
// packed outline. An outline of zero returns the position unchanged.
func DilateLocal(local [3]float32, outline uint32) [3]float32 {
	if outline == 0 {
		return local
	}
	_, width := payload.DecodeOutline(outline)
	return common.Scale3(local, 1+width)
}

// OutlineVertex reproduces the outline pass vertex stage. The dilated position is scaled by
// the instance's scale, then transformed by the model matrix with that scale divided back
// out, so the shell grows by the same fraction on every axis.
//
// Parameters:
//   - local: model-space vertex position
//   - outline: packed outline, zero disables dilation
//   - scale: the instance scale from the mesh record
//   - model: the model transform from the mesh record
//
// Returns:
//   - [3]float32: world-space position
func OutlineVertex(local [3]float32, outline uint32, scale [3]float32, model [16]float32) [3]float32 {
	if outline == 0 {
		return common.Mat4(model).TransformPoint(local)
	}
	p := common.Mul3(DilateLocal(local, outline), scale)

	unscaled := common.Mat4(model)
	for col := range 3 {
		inv := float32(1)
		if scale[col] != 0 {
			inv = 1 / scale[col]
		}
		for row := range 3 {
			unscaled[col*4+row] *= inv
		}
	}
	return unscaled.TransformPoint(p)
}

// OutlineColor returns the flat highlight color written by the outline fragment stage.
func OutlineColor(outline uint32) [4]float32 {
	c, _ := payload.DecodeOutline(outline)
	return [4]float32{c[0], c[1], c[2], 1}
}
