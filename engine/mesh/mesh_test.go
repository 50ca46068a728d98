package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFloat(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestGPUMeshRecordLayout(t *testing.T) {
	rec := GPUMeshRecord{MaterialID: 9, Scale: [3]float32{1, 2, 3}}
	rec.Model[0] = 5
	rec.Normal[15] = 6

	buf := rec.Marshal()
	require.Len(t, buf, 160)
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, float32(5), readFloat(buf, 16))
	assert.Equal(t, float32(6), readFloat(buf, 80+60))
	assert.Equal(t, float32(3), readFloat(buf, 152))
}

func TestGPUVertexLayout(t *testing.T) {
	v := GPUVertex{
		Position: [3]float32{1, 2, 3},
		Normal:   [3]float32{0, 1, 0},
		Tangent:  [4]float32{1, 0, 0, -1},
		UV:       [2]float32{0.25, 0.75},
	}
	buf := v.Marshal()
	require.Len(t, buf, v.Size())
	assert.Equal(t, 48, v.Size())
	assert.Equal(t, float32(1), readFloat(buf, 16))
	assert.Equal(t, float32(-1), readFloat(buf, 36))
	assert.Equal(t, float32(0.75), readFloat(buf, 44))
}

func TestInstanceRecomputesNormalMatrixOnTransform(t *testing.T) {
	in := NewInstance(Cube(1))
	n := in.NormalMatrix()
	assert.Equal(t, float32(1), n[0])

	in.SetScale([3]float32{2, 2, 2})
	n = in.NormalMatrix()
	assert.InDelta(t, 0.5, n[0], 1e-6)
	assert.InDelta(t, 0.5, n[5], 1e-6)

	in.SetTransform([3]float32{3, 0, 0}, [3]float32{}, [3]float32{4, 1, 1})
	n = in.NormalMatrix()
	assert.InDelta(t, 0.25, n[0], 1e-6)
	assert.InDelta(t, 1, n[5], 1e-6)
	assert.Equal(t, float32(0), n[12])

	rec := in.Record(3)
	assert.Equal(t, uint32(3), rec.MaterialID)
	assert.Equal(t, [3]float32{4, 1, 1}, rec.Scale)
	assert.Equal(t, float32(3), rec.Model[12])
}

func TestInstanceDegenerateScaleFallsBackToIdentityNormal(t *testing.T) {
	in := NewInstance(Plane(1), WithScale([3]float32{1, 0, 1}))
	n := in.NormalMatrix()
	assert.Equal(t, [16]float32(common.Identity4()), n)
}

func TestInstanceDefaults(t *testing.T) {
	in := NewInstance(Cube(1))
	assert.True(t, in.Enabled())
	assert.Equal(t, uuid.Nil, in.Material())
	assert.NotEqual(t, uuid.Nil, in.ID())
	_, _, scale := in.Transform()
	assert.Equal(t, [3]float32{1, 1, 1}, scale)
	assert.Zero(t, in.Outline())
}

func checkGeometry(t *testing.T, vertices []GPUVertex, indices []uint32) {
	t.Helper()
	for i, v := range vertices {
		assert.InDelta(t, 1, common.Length3(v.Normal), 1e-5, "normal %d", i)
		tan := [3]float32{v.Tangent[0], v.Tangent[1], v.Tangent[2]}
		assert.InDelta(t, 0, common.Dot3(tan, v.Normal), 1e-5, "tangent %d", i)
	}
	for i := 0; i < len(indices); i += 3 {
		a, b, c := vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]
		face := common.Cross3(common.Sub3(b.Position, a.Position), common.Sub3(c.Position, a.Position))
		assert.GreaterOrEqual(t, common.Dot3(face, a.Normal), float32(-1e-6), "triangle %d winding", i/3)
	}
}

func cubeGeometry(size float32) ([]GPUVertex, []uint32) {
	h := size / 2
	var vertices []GPUVertex
	var indices []uint32
	for _, f := range cubeFaces {
		vertices, indices = quad(vertices, indices, common.Scale3(f.normal, h), f.normal, f.tangent, h, h)
	}
	return vertices, indices
}

func TestCubeGeometry(t *testing.T) {
	cube := Cube(2)
	assert.Equal(t, 24, cube.VertexCount())
	assert.Equal(t, 36, cube.IndexCount())
	assert.Len(t, cube.VertexData(), 24*48)
	assert.Len(t, cube.IndexData(), 36*4)

	vertices, indices := cubeGeometry(2)
	checkGeometry(t, vertices, indices)
	for _, v := range vertices {
		for _, c := range v.Position {
			assert.InDelta(t, 1, math.Abs(float64(c)), 1e-6)
		}
	}
}

func TestFullscreenQuadCoversClipSpace(t *testing.T) {
	q := FullscreenQuad()
	assert.Equal(t, 6, q.VertexCount())
	assert.Zero(t, q.IndexCount())
	assert.Nil(t, q.IndexData())
	for _, v := range FullscreenQuadVertices() {
		assert.Equal(t, float32(1), float32(math.Abs(float64(v.Position[0]))))
		assert.Equal(t, float32(1), float32(math.Abs(float64(v.Position[1]))))
	}
}

func TestSphereCounts(t *testing.T) {
	s := Sphere(1, 8, 4)
	assert.Equal(t, 9*5, s.VertexCount())
	assert.Equal(t, 8*4*6, s.IndexCount())
}
