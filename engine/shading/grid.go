package shading

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
)

// DefaultGridParams returns spacing 1, axis width 0.1 and fade distance 100.
func DefaultGridParams() GridParams {
	return GridParams{Spacing: 1.0, AxisWidth: 0.1, FadeDistance: 100}
}

// GridSample is the grid fragment result at one pixel.
type GridSample struct {
	// Hit is false when the view ray does not reach the ground plane in front of the camera.
	Hit bool
	// Point is the ray's intersection with y = 0.
	Point [3]float32
	// Depth is the NDC depth written for Point.
	Depth float32
	// Color is the RGBA output before blending.
	Color [4]float32
}

// GridRay unprojects a clip-space xy at depth 0 and 1, as the grid vertex stage does.
//
// Parameters:
//   - unprojView: inverse of proj_view
//   - ndcX, ndcY: clip-space coordinates in [-1, 1]
//
// Returns:
//   - near, far: world-space points on the near and far planes
func GridRay(unprojView [16]float32, ndcX, ndcY float32) (near, far [3]float32) {
	near = common.Unproject(unprojView, ndcX, ndcY, 0)
	far = common.Unproject(unprojView, ndcX, ndcY, 1)
	return near, far
}

// GridIntersect finds where the ray from near to far crosses y = 0.
//
// Returns:
//   - [3]float32: the intersection
//   - float32: the ray parameter t = -near.y / (far.y - near.y)
//   - bool: false when t <= 0 or the ray is parallel to the plane
func GridIntersect(near, far [3]float32) ([3]float32, float32, bool) {
	dy := far[1] - near[1]
	if dy == 0 {
		return [3]float32{}, 0, false
	}
	t := -near[1] / dy
	if !(t > 0) {
		return [3]float32{}, t, false
	}
	return common.Add3(near, common.Scale3(common.Sub3(far, near), t)), t, true
}

// GridLineAlpha returns 1 - min(line, 1) for the anti-aliased grid lines, where derivative
// is the screen-space rate of change of coord (fwidth on the GPU).
func GridLineAlpha(coord, derivative [2]float32) float32 {
	line := float32(math32.MaxFloat32)
	for i := range 2 {
		d := max(derivative[i], 1e-6)
		f := coord[i] - 0.5
		g := math32.Abs(f-math32.Floor(f)-0.5) / d
		line = min(line, g)
	}
	return 1 - min(line, 1)
}

// GridShade evaluates the grid fragment stage at one pixel.
//
// Parameters:
//   - params: grid parameters
//   - projView: the camera's projection * view
//   - near, far: the unprojected ray endpoints from GridRay
//   - derivative: screen-space derivative of p.xz / spacing
//
// Returns:
//   - GridSample: the fragment result, Hit false means discarded
func GridShade(params GridParams, projView [16]float32, near, far [3]float32, derivative [2]float32) GridSample {
	p, _, ok := GridIntersect(near, far)
	if !ok {
		return GridSample{}
	}
	spacing := params.Spacing
	if spacing <= 0 {
		spacing = 1
	}
	coord := [2]float32{p[0] / spacing, p[2] / spacing}
	alpha := GridLineAlpha(coord, derivative)

	color := [3]float32{0.2, 0.2, 0.2}
	axisX := params.AxisWidth * max(derivative[0], 1) * spacing
	axisZ := params.AxisWidth * max(derivative[1], 1) * spacing
	if math32.Abs(p[0]) < axisX {
		color = [3]float32{0.1, 0.1, 1.0}
	}
	if math32.Abs(p[2]) < axisZ {
		color = [3]float32{1.0, 0.1, 0.1}
	}

	if params.FadeDistance > 0 {
		dist := common.Length3(common.Sub3(p, near))
		alpha *= max(0, 1-dist/params.FadeDistance)
	}

	clip := common.Mat4(projView).MulVec([4]float32{p[0], p[1], p[2], 1})
	depth := float32(0)
	if clip[3] != 0 {
		depth = clip[2] / clip[3]
	}
	return GridSample{
		Hit:   true,
		Point: p,
		Depth: depth,
		Color: [4]float32{color[0], color[1], color[2], alpha},
	}
}
