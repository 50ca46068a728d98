package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRecord(t *testing.T) {
	rec := DefaultRecord()
	assert.Equal(t, [4]float32{1, 1, 1, 1}, rec.Albedo)
	assert.Equal(t, [2]float32{0.5, 0.5}, rec.MetalRoughness)
	assert.Equal(t, float32(1), rec.Occlusion)
	assert.Equal(t, [ChannelCount]uint32{}, rec.TextureIndices())

	fresh := NewMaterial().Record(nil)
	assert.Equal(t, rec, fresh)
}

func TestGPUMaterialRecordLayout(t *testing.T) {
	rec := GPUMaterialRecord{
		Albedo:          [4]float32{0.1, 0.2, 0.3, 1},
		MetalRoughness:  [2]float32{0.9, 0.4},
		Emission:        [3]float32{0, 0, 2},
		Occlusion:       0.7,
		NormalTexture:   4,
		EmissionTexture: 9,
	}
	buf := rec.Marshal()
	require.Len(t, buf, 80)
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(0.9), f(16))
	assert.Equal(t, float32(0.4), f(20))
	assert.Equal(t, float32(2), f(40))
	assert.Equal(t, float32(0.7), f(44))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(buf[52:]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(buf[64:]))
}

func TestRecordResolvesTextureHandles(t *testing.T) {
	albedo, normal, stale := uuid.New(), uuid.New(), uuid.New()
	m := NewMaterial(
		WithTexture(ChannelAlbedo, albedo),
		WithTexture(ChannelNormal, normal),
		WithTexture(ChannelEmission, stale),
		WithRoughness(0.2),
	)
	known := map[uuid.UUID]uint32{albedo: 3, normal: 5}
	rec := m.Record(func(id uuid.UUID) uint32 { return known[id] })

	assert.Equal(t, uint32(3), rec.AlbedoTexture)
	assert.Equal(t, uint32(5), rec.NormalTexture)
	assert.Equal(t, uint32(0), rec.EmissionTexture, "unknown handles fall back to the default texture")
	assert.Equal(t, uint32(0), rec.MetalRoughnessTexture)
	assert.Equal(t, float32(0.2), rec.MetalRoughness[1])
}

func TestSetTextureIgnoresInvalidChannel(t *testing.T) {
	m := NewMaterial()
	m.SetTexture(ChannelCount, uuid.New())
	m.SetTexture(-1, uuid.New())
	assert.Equal(t, uuid.Nil, m.Texture(ChannelCount))
	for c := ChannelAlbedo; c < ChannelCount; c++ {
		assert.Equal(t, uuid.Nil, m.Texture(c))
	}
	assert.Equal(t, "normal_texture", ChannelNormal.String())
}
