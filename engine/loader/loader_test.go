package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// triangleBuffer packs one triangle in the XY plane: positions, UVs and uint16 indices.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
	}
	for _, f := range []float32{0, 0, 1, 0, 0, 1} {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
	}
	for _, i := range []uint16{0, 1, 2, 0} { // trailing pad
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// triangleDoc returns a document with one translated node, a textured material and the
// triangle buffer. bufferURI empty means the GLB chunk.
func triangleDoc(t *testing.T, bufferURI string, node map[string]any) map[string]any {
	t.Helper()
	bin := triangleBuffer()
	buffer := map[string]any{"byteLength": len(bin)}
	if bufferURI != "" {
		buffer["uri"] = bufferURI
	}
	if node == nil {
		node = map[string]any{"name": "root", "mesh": 0, "translation": []float32{1, 2, 3}}
	}
	return map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes":  []any{node},
		"meshes": []any{map[string]any{"primitives": []any{map[string]any{
			"attributes": map[string]int{"POSITION": 0, "TEXCOORD_0": 1},
			"indices":    2,
			"material":   0,
		}}}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfFloat, "count": 3, "type": "VEC2"},
			map[string]any{"bufferView": 2, "componentType": gltfUnsignedShort, "count": 3, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 24},
			map[string]any{"buffer": 0, "byteOffset": 60, "byteLength": 6},
		},
		"buffers": []any{buffer},
		"materials": []any{map[string]any{
			"name": "paint",
			"pbrMetallicRoughness": map[string]any{
				"baseColorFactor":  []float32{0.5, 0.25, 1, 1},
				"metallicFactor":   0.25,
				"roughnessFactor":  0.5,
				"baseColorTexture": map[string]any{"index": 0},
			},
			"emissiveFactor":   []float32{0.1, 0.2, 0.3},
			"occlusionTexture": map[string]any{"index": 0, "strength": 0.5},
		}},
		"textures": []any{map[string]any{"source": 0, "sampler": 0}},
		"samplers": []any{map[string]any{"magFilter": gltfFilterNearest}},
		"images": []any{map[string]any{
			"uri": "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t)),
		}},
	}
}

func dataURI(data []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
}

func marshalDoc(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// packGLB frames a JSON document and binary payload as a GLB container.
func packGLB(jsonData, bin []byte) []byte {
	pad := func(b []byte, fill byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, fill)
		}
		return b
	}
	jsonData = pad(append([]byte(nil), jsonData...), ' ')
	bin = pad(append([]byte(nil), bin...), 0)

	var buf bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(bin)
	for _, v := range []uint32{glbMagic, glbVersion, uint32(total), uint32(len(jsonData)), glbChunkJSON} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(jsonData)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(bin)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(glbChunkBIN))
	buf.Write(bin)
	return buf.Bytes()
}

func newTestLoader() Loader {
	return NewLoader(BackendTypeGLTF, WithLogger(zap.NewNop()))
}

func loadDoc(t *testing.T, name string, doc map[string]any) *Asset {
	t.Helper()
	a, err := newTestLoader().LoadReader(name, bytes.NewReader(marshalDoc(t, doc)), false)
	require.NoError(t, err)
	return a
}

func assertVec3(t *testing.T, want, got [3]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestLoadReaderBakesNodeTransform(t *testing.T) {
	a := loadDoc(t, "tri", triangleDoc(t, dataURI(triangleBuffer()), nil))

	require.Len(t, a.Primitives, 1)
	p := a.Primitives[0]
	assert.Equal(t, "tri/root/0", p.Name)
	assert.Equal(t, "tri/root/0", p.Mesh.Name())
	assert.Equal(t, []uint32{0, 1, 2}, p.Indices)
	assert.Equal(t, 0, p.Material)

	require.Len(t, p.Vertices, 3)
	assertVec3(t, [3]float32{1, 2, 3}, p.Vertices[0].Position)
	assertVec3(t, [3]float32{2, 2, 3}, p.Vertices[1].Position)
	assertVec3(t, [3]float32{1, 3, 3}, p.Vertices[2].Position)
	for _, v := range p.Vertices {
		assertVec3(t, [3]float32{0, 0, 1}, v.Normal)
		assertVec3(t, [3]float32{1, 0, 0}, [3]float32{v.Tangent[0], v.Tangent[1], v.Tangent[2]})
		assert.Equal(t, float32(1), v.Tangent[3])
	}
	assert.Equal(t, [2]float32{1, 0}, p.Vertices[1].UV)
	assert.Equal(t, 3, p.Mesh.IndexCount())
}

func TestMaterialFactorsAndTextures(t *testing.T) {
	a := loadDoc(t, "tri", triangleDoc(t, dataURI(triangleBuffer()), nil))

	require.Len(t, a.Materials, 1)
	m := a.Materials[0]
	assert.Equal(t, "paint", m.Name)
	assert.Equal(t, [4]float32{0.5, 0.25, 1, 1}, m.Albedo)
	assert.Equal(t, float32(0.25), m.Metallic)
	assert.Equal(t, float32(0.5), m.Roughness)
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, m.Emission)
	assert.Equal(t, float32(0.5), m.Occlusion)
	assert.Equal(t, 0, m.Textures[material.ChannelAlbedo])
	assert.Equal(t, 0, m.Textures[material.ChannelOcclusion])
	assert.Equal(t, -1, m.Textures[material.ChannelNormal])
	assert.Equal(t, -1, m.Textures[material.ChannelMetalRoughness])
	assert.Equal(t, -1, m.Textures[material.ChannelEmission])

	require.Len(t, a.Textures, 1)
	require.NotNil(t, a.Textures[0].Image)
	assert.Equal(t, "png", a.Textures[0].Format)
	assert.Equal(t, image.Rect(0, 0, 2, 2), a.Textures[0].Image.Bounds())
	assert.Equal(t, texture.SamplerNearestRepeat, a.Textures[0].Mode)
}

func TestMaterialDefaults(t *testing.T) {
	doc := triangleDoc(t, dataURI(triangleBuffer()), nil)
	doc["materials"] = []any{map[string]any{}}

	a := loadDoc(t, "plain", doc)
	m := a.Materials[0]
	assert.Equal(t, "plain/material0", m.Name)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.Albedo)
	assert.Equal(t, float32(1), m.Metallic)
	assert.Equal(t, float32(1), m.Roughness)
	assert.Equal(t, float32(1), m.Occlusion)
	assert.Equal(t, [3]float32{}, m.Emission)
}

func TestGLBMatchesGLTF(t *testing.T) {
	fromJSON := loadDoc(t, "tri", triangleDoc(t, dataURI(triangleBuffer()), nil))

	glb := packGLB(marshalDoc(t, triangleDoc(t, "", nil)), triangleBuffer())
	fromGLB, err := newTestLoader().LoadReader("tri", bytes.NewReader(glb), true)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Primitives[0].Vertices, fromGLB.Primitives[0].Vertices)
	assert.Equal(t, fromJSON.Primitives[0].Indices, fromGLB.Primitives[0].Indices)
	assert.Equal(t, fromJSON.Materials, fromGLB.Materials)
}

func TestGLBFlagMustMatchContent(t *testing.T) {
	data := marshalDoc(t, triangleDoc(t, dataURI(triangleBuffer()), nil))
	_, err := newTestLoader().LoadReader("tri", bytes.NewReader(data), true)
	assert.ErrorIs(t, err, errInvalidGLB)
}

func TestMirroredNodeFlipsWinding(t *testing.T) {
	node := map[string]any{"mesh": 0, "scale": []float32{-1, 1, 1}}
	a := loadDoc(t, "mirror", triangleDoc(t, dataURI(triangleBuffer()), node))

	p := a.Primitives[0]
	assert.Equal(t, "mirror/node0/0", p.Name)
	assert.Equal(t, []uint32{0, 2, 1}, p.Indices)
	assertVec3(t, [3]float32{-1, 0, 0}, p.Vertices[1].Position)
	assertVec3(t, [3]float32{0, 0, 1}, p.Vertices[0].Normal)
}

func TestChildInheritsParentTransform(t *testing.T) {
	doc := triangleDoc(t, dataURI(triangleBuffer()), map[string]any{
		"name":        "parent",
		"translation": []float32{0, 0, 5},
		"rotation":    []float32{0, 0, float32(math.Sqrt2 / 2), float32(math.Sqrt2 / 2)}, // 90 degrees about Z
		"children":    []int{1},
	})
	doc["nodes"] = append(doc["nodes"].([]any), map[string]any{
		"name": "child", "mesh": 0, "translation": []float32{1, 0, 0},
	})

	a := loadDoc(t, "tree", doc)
	require.Len(t, a.Primitives, 1)
	p := a.Primitives[0]
	assert.Equal(t, "tree/child/0", p.Name)
	assertVec3(t, [3]float32{0, 1, 5}, p.Vertices[0].Position)
	assertVec3(t, [3]float32{0, 2, 5}, p.Vertices[1].Position)
}

func TestMalformedDocuments(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   error
	}{
		{
			name: "index beyond vertices",
			mutate: func(doc map[string]any) {
				doc["buffers"] = []any{map[string]any{"byteLength": 66, "uri": dataURI(func() []byte {
					b := triangleBuffer()
					binary.LittleEndian.PutUint16(b[64:], 7)
					return b
				}())}}
			},
			want: ErrMalformed,
		},
		{
			name: "node cycle",
			mutate: func(doc map[string]any) {
				doc["nodes"] = []any{
					map[string]any{"children": []int{1}},
					map[string]any{"children": []int{0}},
				}
			},
			want: ErrMalformed,
		},
		{
			name: "accessor overruns view",
			mutate: func(doc map[string]any) {
				doc["accessors"].([]any)[0].(map[string]any)["count"] = 4
			},
			want: ErrMalformed,
		},
		{
			name: "negative accessor count",
			mutate: func(doc map[string]any) {
				doc["accessors"].([]any)[0].(map[string]any)["count"] = -1
			},
			want: ErrMalformed,
		},
		{
			name: "negative accessor offset",
			mutate: func(doc map[string]any) {
				doc["accessors"].([]any)[0].(map[string]any)["byteOffset"] = -8
			},
			want: ErrMalformed,
		},
		{
			name: "huge accessor count",
			mutate: func(doc map[string]any) {
				doc["accessors"].([]any)[0].(map[string]any)["count"] = math.MaxInt64 / 2
			},
			want: ErrMalformed,
		},
		{
			name: "negative view length",
			mutate: func(doc map[string]any) {
				doc["bufferViews"].([]any)[0].(map[string]any)["byteLength"] = -4
			},
			want: ErrMalformed,
		},
		{
			name: "required extension",
			mutate: func(doc map[string]any) {
				doc["extensionsRequired"] = []string{"KHR_draco_mesh_compression"}
			},
			want: ErrUnsupported,
		},
		{
			name: "only points",
			mutate: func(doc map[string]any) {
				prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
				prim["mode"] = 0
			},
			want: ErrUnsupported,
		},
		{
			name: "external buffer from a stream",
			mutate: func(doc map[string]any) {
				doc["buffers"] = []any{map[string]any{"byteLength": 68, "uri": "tri.bin"}}
			},
			want: ErrUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := triangleDoc(t, dataURI(triangleBuffer()), nil)
			tt.mutate(doc)
			_, err := newTestLoader().LoadReader(tt.name, bytes.NewReader(marshalDoc(t, doc)), false)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRejectsGLTF1(t *testing.T) {
	doc := triangleDoc(t, dataURI(triangleBuffer()), nil)
	doc["asset"] = map[string]any{"version": "1.0"}
	_, err := newTestLoader().LoadReader("old", bytes.NewReader(marshalDoc(t, doc)), false)
	assert.ErrorIs(t, err, errInvalidVersion)
}

func TestUndecodableImageFallsBack(t *testing.T) {
	doc := triangleDoc(t, dataURI(triangleBuffer()), nil)
	doc["images"] = []any{map[string]any{"uri": dataURI([]byte("not an image"))}}

	a := loadDoc(t, "broken", doc)
	assert.Nil(t, a.Textures[0].Image)
	assert.Equal(t, -1, a.Materials[0].Textures[material.ChannelAlbedo])
}

func TestLoadResolvesFilesNextToDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.bin"), triangleBuffer(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "albedo.png"), testPNG(t), 0o644))

	doc := triangleDoc(t, "tri.bin", nil)
	doc["images"] = []any{map[string]any{"uri": "albedo.png"}}
	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, marshalDoc(t, doc), 0o644))

	l := newTestLoader()
	a, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tri.gltf/root/0", a.Primitives[0].Name)
	assert.NotNil(t, a.Textures[0].Image)

	again, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Same(t, a, l.Get(path))
	assert.Len(t, l.Assets(), 1)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := newTestLoader().Load("scene.fbx")
	assert.Error(t, err)
	assert.False(t, IsModelPath("scene.fbx"))
	assert.True(t, IsModelPath("Scene.GLB"))
}

// failingReader fails the test if the loader reads it.
type failingReader struct{ t *testing.T }

func (r failingReader) Read([]byte) (int, error) {
	r.t.Error("cached asset was read again")
	return 0, io.EOF
}

func TestLoadReaderUsesCache(t *testing.T) {
	a := &Asset{Name: "cached"}
	l := NewLoader(BackendTypeGLTF, WithLogger(zap.NewNop()), WithAsset("cached", a))

	got, err := l.LoadReader("cached", failingReader{t}, false)
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestConcurrentLoadsShareOneImport(t *testing.T) {
	l := newTestLoader()
	data := marshalDoc(t, triangleDoc(t, dataURI(triangleBuffer()), nil))

	const callers = 8
	got := make([]*Asset, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := l.LoadReader("tri", bytes.NewReader(data), false)
			assert.NoError(t, err)
			got[i] = a
		}()
	}
	wg.Wait()

	for _, a := range got[1:] {
		assert.Same(t, got[0], a)
	}
	assert.Len(t, l.Assets(), 1)
}

func TestFailedLoadIsNotCached(t *testing.T) {
	l := newTestLoader()
	_, err := l.LoadReader("tri", bytes.NewReader([]byte("{")), false)
	require.Error(t, err)
	assert.Nil(t, l.Get("tri"))

	a, err := l.LoadReader("tri", bytes.NewReader(marshalDoc(t, triangleDoc(t, dataURI(triangleBuffer()), nil))), false)
	require.NoError(t, err)
	assert.Same(t, a, l.Get("tri"))
}

func TestSamplerModes(t *testing.T) {
	ptr := func(v int) *int { return &v }
	im := &importer{file: &gltfFile{doc: gltfDocument{Samplers: []gltfSampler{
		{},
		{MagFilter: ptr(gltfFilterNearest), WrapS: ptr(gltfWrapClampToEdge)},
		{WrapT: ptr(gltfWrapClampToEdge)},
	}}}}

	assert.Equal(t, texture.SamplerLinearRepeat, im.samplerMode(nil))
	assert.Equal(t, texture.SamplerLinearRepeat, im.samplerMode(ptr(0)))
	assert.Equal(t, texture.SamplerNearestRepeat, im.samplerMode(ptr(1)))
	assert.Equal(t, texture.SamplerLinearClamp, im.samplerMode(ptr(2)))
	assert.Equal(t, texture.SamplerLinearRepeat, im.samplerMode(ptr(9)))
}

func TestReadFloatsNormalizesIntegers(t *testing.T) {
	bv := 0
	f := &gltfFile{doc: gltfDocument{
		Accessors:   []gltfAccessor{{BufferView: &bv, ComponentType: gltfUnsignedByte, Normalized: true, Count: 1, Type: "VEC2"}},
		BufferViews: []gltfBufferView{{Buffer: 0, ByteLength: 2}},
		Buffers:     []gltfBuffer{{ByteLength: 2, data: []byte{255, 51}}},
	}}

	got, err := f.readFloats(0, "VEC2")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1e-6)
	assert.InDelta(t, 0.2, got[1], 1e-6)

	f.doc.Accessors[0].Normalized = false
	_, err = f.readFloats(0, "VEC2")
	assert.ErrorIs(t, err, ErrUnsupported)
}

// fakeTarget records what an asset adds to a scene.
type fakeTarget struct {
	capacity  int
	textures  []texture.SamplerMode
	materials []material.Material
	instances []mesh.Instance
}

func (f *fakeTarget) AddTexture(_ image.Image, mode texture.SamplerMode) (uuid.UUID, error) {
	if len(f.textures) >= f.capacity {
		return uuid.Nil, texture.ErrSetFull
	}
	f.textures = append(f.textures, mode)
	return uuid.New(), nil
}

func (f *fakeTarget) AddMaterial(m material.Material) int {
	f.materials = append(f.materials, m)
	return len(f.materials)
}

func (f *fakeTarget) AddInstance(in mesh.Instance) int {
	f.instances = append(f.instances, in)
	return len(f.instances) - 1
}

func TestInstantiateAddsResources(t *testing.T) {
	l := newTestLoader()
	a, err := l.LoadReader("tri", bytes.NewReader(marshalDoc(t, triangleDoc(t, dataURI(triangleBuffer()), nil))), false)
	require.NoError(t, err)

	target := &fakeTarget{capacity: 4}
	instances, err := l.Instantiate(a, target, mesh.WithPosition([3]float32{0, 1, 0}))
	require.NoError(t, err)

	assert.Equal(t, []texture.SamplerMode{texture.SamplerNearestRepeat}, target.textures)
	require.Len(t, target.materials, 1)
	m := target.materials[0]
	assert.Equal(t, "paint", m.Name())
	assert.Equal(t, float32(0.25), m.Metallic())
	assert.NotEqual(t, uuid.Nil, m.Texture(material.ChannelAlbedo))
	assert.Equal(t, m.Texture(material.ChannelAlbedo), m.Texture(material.ChannelOcclusion))
	assert.Equal(t, uuid.Nil, m.Texture(material.ChannelNormal))

	require.Len(t, instances, 1)
	assert.Equal(t, target.instances, instances)
	assert.Equal(t, m.ID(), instances[0].Material())
	assert.Same(t, a.Primitives[0].Mesh, instances[0].Geometry())
	pos, _, _ := instances[0].Transform()
	assert.Equal(t, [3]float32{0, 1, 0}, pos)
}

func TestInstantiateFallsBackWhenTextureTableIsFull(t *testing.T) {
	l := newTestLoader()
	a, err := l.LoadReader("tri", bytes.NewReader(marshalDoc(t, triangleDoc(t, dataURI(triangleBuffer()), nil))), false)
	require.NoError(t, err)

	target := &fakeTarget{}
	_, err = l.Instantiate(a, target)
	require.NoError(t, err)
	require.Len(t, target.materials, 1)
	assert.Equal(t, uuid.Nil, target.materials[0].Texture(material.ChannelAlbedo))
}

type brokenTarget struct{ fakeTarget }

func (b *brokenTarget) AddTexture(image.Image, texture.SamplerMode) (uuid.UUID, error) {
	return uuid.Nil, errors.New("device lost")
}

func TestInstantiateReportsTextureErrors(t *testing.T) {
	l := newTestLoader()
	a, err := l.LoadReader("tri", bytes.NewReader(marshalDoc(t, triangleDoc(t, dataURI(triangleBuffer()), nil))), false)
	require.NoError(t, err)

	target := &brokenTarget{}
	_, err = l.Instantiate(a, target)
	assert.Error(t, err)
	assert.Empty(t, target.instances)
}
