package mesh

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
)

type cubeFace struct {
	normal  [3]float32
	tangent [3]float32
}

// cubeFaces lists the six faces with a tangent pointing along +u. The bitangent cross(n, t)
// points toward decreasing v, matching top-left texture origins.
var cubeFaces = [6]cubeFace{
	{normal: [3]float32{1, 0, 0}, tangent: [3]float32{0, 0, -1}},
	{normal: [3]float32{-1, 0, 0}, tangent: [3]float32{0, 0, 1}},
	{normal: [3]float32{0, 1, 0}, tangent: [3]float32{1, 0, 0}},
	{normal: [3]float32{0, -1, 0}, tangent: [3]float32{1, 0, 0}},
	{normal: [3]float32{0, 0, 1}, tangent: [3]float32{1, 0, 0}},
	{normal: [3]float32{0, 0, -1}, tangent: [3]float32{-1, 0, 0}},
}

// quad appends one counter-clockwise face centred at center and spanned by tangent and bitangent.
func quad(vertices []GPUVertex, indices []uint32, center, normal, tangent [3]float32, halfU, halfV float32) ([]GPUVertex, []uint32) {
	bitangent := common.Cross3(normal, tangent)
	base := uint32(len(vertices))
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, c := range corners {
		p := common.Add3(center, common.Add3(
			common.Scale3(tangent, c[0]*halfU),
			common.Scale3(bitangent, c[1]*halfV)))
		vertices = append(vertices, GPUVertex{
			Position: p,
			Normal:   normal,
			Tangent:  [4]float32{tangent[0], tangent[1], tangent[2], 1},
			UV:       [2]float32{0.5 + c[0]*0.5, 0.5 - c[1]*0.5},
		})
	}
	indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	return vertices, indices
}

// Cube builds an axis-aligned cube centred at the origin with 24 vertices and per-face tangents.
//
// Parameters:
//   - size: edge length
//
// Returns:
//   - Mesh: the cube geometry
func Cube(size float32) Mesh {
	h := size / 2
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range cubeFaces {
		vertices, indices = quad(vertices, indices, common.Scale3(f.normal, h), f.normal, f.tangent, h, h)
	}
	return NewMesh(WithName("cube"), WithVertices(vertices), WithIndices(indices))
}

// Plane builds a square ground plane on y = 0 facing +Y.
//
// Parameters:
//   - size: edge length
//
// Returns:
//   - Mesh: the plane geometry
func Plane(size float32) Mesh {
	vertices, indices := quad(nil, nil, [3]float32{}, [3]float32{0, 1, 0}, [3]float32{1, 0, 0}, size/2, size/2)
	return NewMesh(WithName("plane"), WithVertices(vertices), WithIndices(indices))
}

// Sphere builds a UV sphere centred at the origin. Tangents follow increasing longitude.
//
// Parameters:
//   - radius: sphere radius
//   - segments: longitudinal subdivisions (at least 3)
//   - rings: latitudinal subdivisions (at least 2)
//
// Returns:
//   - Mesh: the sphere geometry
func Sphere(radius float32, segments, rings int) Mesh {
	segments = max(segments, 3)
	rings = max(rings, 2)

	vertices := make([]GPUVertex, 0, (segments+1)*(rings+1))
	for r := 0; r <= rings; r++ {
		theta := math32.Pi * float32(r) / float32(rings)
		sinT, cosT := math32.Sincos(theta)
		for s := 0; s <= segments; s++ {
			phi := 2 * math32.Pi * float32(s) / float32(segments)
			sinP, cosP := math32.Sincos(phi)
			n := [3]float32{sinT * sinP, cosT, sinT * cosP}
			vertices = append(vertices, GPUVertex{
				Position: common.Scale3(n, radius),
				Normal:   n,
				Tangent:  [4]float32{cosP, 0, -sinP, 1},
				UV:       [2]float32{float32(s) / float32(segments), float32(r) / float32(rings)},
			})
		}
	}

	stride := uint32(segments + 1)
	indices := make([]uint32, 0, segments*rings*6)
	for r := range uint32(rings) {
		for s := range uint32(segments) {
			a := r*stride + s
			b := a + stride
			indices = append(indices, b, b+1, a+1, b, a+1, a)
		}
	}
	return NewMesh(WithName("sphere"), WithVertices(vertices), WithIndices(indices))
}

// FullscreenQuad builds the six clip-space vertices covering the viewport, drawn without an index buffer.
//
// Returns:
//   - Mesh: the quad geometry
func FullscreenQuad() Mesh {
	return NewMesh(WithName("fullscreen_quad"), WithGridVertices(FullscreenQuadVertices()))
}

// FullscreenQuadVertices returns the two counter-clockwise triangles of the full-screen quad.
func FullscreenQuadVertices() []GPUGridVertex {
	return []GPUGridVertex{
		{Position: [2]float32{-1, -1}},
		{Position: [2]float32{1, -1}},
		{Position: [2]float32{1, 1}},
		{Position: [2]float32{-1, -1}},
		{Position: [2]float32{1, 1}},
		{Position: [2]float32{-1, 1}},
	}
}
