package scene

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/config"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/resource"
	"github.com/Carmen-Shannon/oxy-shade/engine/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawRecord struct {
	key    string
	mesh   string
	groups []string
	slots  []int
}

// fakeRenderer records the calls a scene makes without touching a GPU.
type fakeRenderer struct {
	pipelines map[string]pipeline.Pipeline
	rebuilt   []string
	events    []string
	draws     []drawRecord
	writes    []bind_group_provider.BufferWrite
	bound     map[string]int

	pickID  uint32
	pickHit bool
}

var _ renderer.Renderer = &fakeRenderer{}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{pipelines: make(map[string]pipeline.Pipeline), bound: make(map[string]int)}
}

func (f *fakeRenderer) Pipeline(key string) pipeline.Pipeline { return f.pipelines[key] }
func (f *fakeRenderer) Pipelines() map[string]pipeline.Pipeline {
	return f.pipelines
}
func (f *fakeRenderer) RegisterPipelines(ps ...pipeline.Pipeline) error {
	for _, p := range ps {
		f.pipelines[p.PipelineKey()] = p
	}
	return nil
}
func (f *fakeRenderer) RebuildPipeline(p pipeline.Pipeline) error {
	f.rebuilt = append(f.rebuilt, p.PipelineKey())
	f.pipelines[p.PipelineKey()] = p
	return nil
}
func (f *fakeRenderer) Resize(width, height int) {}
func (f *fakeRenderer) Size() (int, int)         { return 640, 480 }
func (f *fakeRenderer) InitMeshBuffers(bind_group_provider.BindGroupProvider, []byte, []byte, int, int) error {
	return nil
}
func (f *fakeRenderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int, _ map[int]uint64) error {
	f.bound[provider.Label()] = group
	return nil
}
func (f *fakeRenderer) EnsureBufferCapacity(bind_group_provider.BindGroupProvider, int, uint64) (bool, error) {
	return false, nil
}
func (f *fakeRenderer) InitTextureView(bind_group_provider.BindGroupProvider, int, common.TextureStagingData) error {
	return nil
}
func (f *fakeRenderer) InitSampler(bind_group_provider.BindGroupProvider, int, common.SamplerStagingData) error {
	return nil
}
func (f *fakeRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	f.writes = append([]bind_group_provider.BufferWrite(nil), writes...)
	return nil
}
func (f *fakeRenderer) BeginFrame() error {
	f.events = append(f.events, "begin")
	return nil
}
func (f *fakeRenderer) BeginPickingPass() error {
	f.events = append(f.events, "picking_pass")
	return nil
}
func (f *fakeRenderer) DrawCall(key string, meshProvider bind_group_provider.BindGroupProvider, bindings []renderer.Binding) error {
	rec := drawRecord{key: key, mesh: meshProvider.Label()}
	for _, b := range bindings {
		rec.groups = append(rec.groups, b.Provider.Label())
		rec.slots = append(rec.slots, b.Slot)
	}
	f.draws = append(f.draws, rec)
	f.events = append(f.events, key)
	return nil
}
func (f *fakeRenderer) EndFrame() { f.events = append(f.events, "end") }
func (f *fakeRenderer) Present()  { f.events = append(f.events, "present") }
func (f *fakeRenderer) ReadPickingPixel(x, y int) (uint32, bool, error) {
	return f.pickID, f.pickHit, nil
}
func (f *fakeRenderer) SetPresentMode(renderer.PresentMode) {}
func (f *fakeRenderer) Release()                            {}

// writesTo returns the data written to one binding of the provider with the given label.
func (f *fakeRenderer) writesTo(label string, binding int) [][]byte {
	var out [][]byte
	for _, w := range f.writes {
		if w.Provider.Label() == label && w.Binding == binding {
			out = append(out, w.Data)
		}
	}
	return out
}

func newTestScene(t *testing.T, options ...SceneBuilderOption) (*scene, *fakeRenderer) {
	t.Helper()
	r := newFakeRenderer()
	opts := append([]SceneBuilderOption{WithShaderValidation(false), WithWorkers(2)}, options...)
	s, err := NewScene("test", camera.NewCamera(), r, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s.(*scene), r
}

func cube() mesh.Mesh {
	return mesh.Cube(1)
}

func TestNewSceneRegistersEnabledPasses(t *testing.T) {
	_, r := newTestScene(t)
	assert.Len(t, r.pipelines, 4)

	_, r = newTestScene(t, WithGrid(false, shading.DefaultGridParams()), WithPicking(false))
	assert.Contains(t, r.pipelines, "pbr")
	assert.Contains(t, r.pipelines, "outline")
	assert.NotContains(t, r.pipelines, "grid")
	assert.NotContains(t, r.pipelines, "picking")
}

func TestNewSceneRejectsNil(t *testing.T) {
	_, err := NewScene("nil", nil, newFakeRenderer())
	assert.Error(t, err)
	_, err = NewScene("nil", camera.NewCamera(), nil)
	assert.Error(t, err)
}

func TestNewSceneRejectsMismatchedShaders(t *testing.T) {
	// serve the pbr sources for every pass: the outline and picking passes bind fewer groups
	fsys := remapFS{base: shader.Builtin(), names: map[string]string{
		"outline-vert.wgsl": "pbr-vert.wgsl",
		"outline-frag.wgsl": "pbr-frag.wgsl",
	}}
	_, err := NewScene("bad", camera.NewCamera(), newFakeRenderer(), WithShaderValidation(false), WithShaderFS(fsys))
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrLayoutMismatch)
}

type remapFS struct {
	base  fs.FS
	names map[string]string
}

func (r remapFS) Open(name string) (fs.File, error) {
	if alias, ok := r.names[name]; ok {
		name = alias
	}
	return r.base.Open(name)
}

func TestRenderSubmitsPassesInOrder(t *testing.T) {
	s, r := newTestScene(t)
	a := mesh.NewInstance(cube())
	b := mesh.NewInstance(cube(), mesh.WithPosition([3]float32{2, 0, 0}))
	s.AddInstance(a)
	s.AddInstance(b)
	s.Select(b.ID())

	require.NoError(t, s.Render())
	assert.Equal(t, []string{
		"begin",
		"pbr", "pbr",
		"outline",
		"grid",
		"picking_pass",
		"picking", "picking",
		"end", "present",
	}, r.events)
}

func TestHiddenPassSubmitsNoDraws(t *testing.T) {
	s, r := newTestScene(t, WithPicking(false))
	s.AddInstance(mesh.NewInstance(cube()))

	assert.True(t, s.SetPassVisible(pipeline.PassGrid, false))
	assert.False(t, s.PassVisible(pipeline.PassGrid))
	assert.False(t, s.SetPassVisible(pipeline.PassPicking, false))

	require.NoError(t, s.Render())
	assert.Equal(t, []string{"begin", "pbr", "end", "present"}, r.events)

	r.events = nil
	s.SetPassVisible(pipeline.PassGrid, true)
	require.NoError(t, s.Render())
	assert.Equal(t, []string{"begin", "pbr", "grid", "end", "present"}, r.events)
}

func TestRenderBindsGroupsInPassOrder(t *testing.T) {
	s, r := newTestScene(t)
	s.AddInstance(mesh.NewInstance(cube()))
	s.AddInstance(mesh.NewInstance(cube()))
	require.NoError(t, s.Render())

	byKey := make(map[string][]drawRecord)
	for _, d := range r.draws {
		byKey[d.key] = append(byKey[d.key], d)
	}

	pbr := byKey["pbr"]
	require.Len(t, pbr, 2)
	assert.Equal(t, []string{"camera", "meshes", "materials", "lights", "pbr_payload"}, pbr[0].groups)
	assert.Equal(t, 0, pbr[0].slots[4])
	assert.Equal(t, 1, pbr[1].slots[4])

	grid := byKey["grid"]
	require.Len(t, grid, 1)
	assert.Equal(t, []string{"camera", "grid"}, grid[0].groups)
	assert.Equal(t, "fullscreen_quad", grid[0].mesh)

	picking := byKey["picking"]
	require.Len(t, picking, 2)
	assert.Equal(t, []string{"camera", "meshes", "picking_payload"}, picking[1].groups)

	// shared tables are bound against the first pass that declares them
	assert.Equal(t, 0, r.bound["camera"])
	assert.Equal(t, 3, r.bound["lights"])
	assert.Equal(t, 1, r.bound["grid"])
	assert.Equal(t, 2, r.bound["picking_payload"])
	assert.Equal(t, 4, r.bound["pbr_payload"])
}

func TestRenderWritesPayloadSlots(t *testing.T) {
	s, r := newTestScene(t)
	for range 3 {
		s.AddInstance(mesh.NewInstance(cube()))
	}
	require.NoError(t, s.Render())

	var offsets []uint64
	for _, w := range r.writes {
		if w.Provider.Label() != "picking_payload" {
			continue
		}
		offsets = append(offsets, w.Offset)
		require.Len(t, w.Data, 32)
		meshIdx := binary.LittleEndian.Uint32(w.Data)
		id, hit := shading.DecodePickColor([4]float32{
			float32FromBits(w.Data[16:]), float32FromBits(w.Data[20:]),
			float32FromBits(w.Data[24:]), float32FromBits(w.Data[28:]),
		})
		require.True(t, hit)
		assert.Equal(t, meshIdx, id)
	}
	assert.Equal(t, []uint64{0, payload.SlotStride, 2 * payload.SlotStride}, offsets)
}

func TestRenderCapsDrawsAtSlotBudget(t *testing.T) {
	s, r := newTestScene(t, WithMaxDraws(2), WithGrid(false, shading.DefaultGridParams()))
	for range 5 {
		s.AddInstance(mesh.NewInstance(cube()))
	}
	require.NoError(t, s.Render())

	count := 0
	for _, d := range r.draws {
		if d.key == "pbr" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestRenderSkipsDisabledInstances(t *testing.T) {
	s, r := newTestScene(t, WithPicking(false))
	hidden := mesh.NewInstance(cube())
	hidden.SetEnabled(false)
	s.AddInstance(hidden)
	s.AddInstance(mesh.NewInstance(cube()))
	require.NoError(t, s.Render())

	var slots []int
	for _, w := range r.writes {
		if w.Provider.Label() == "pbr_payload" {
			slots = append(slots, int(binary.LittleEndian.Uint32(w.Data)))
		}
	}
	// the hidden instance keeps mesh index 0, only index 1 is drawn
	assert.Equal(t, []int{1}, slots)
}

func TestMeshRecordsResolveMaterials(t *testing.T) {
	s, r := newTestScene(t)
	m := material.NewMaterial(material.WithAlbedo([4]float32{1, 0, 0, 1}))
	assert.Equal(t, 1, s.AddMaterial(m))

	plain := mesh.NewInstance(cube())
	red := mesh.NewInstance(cube(), mesh.WithMaterial(m.ID()))
	s.AddInstance(plain)
	s.AddInstance(red)
	require.NoError(t, s.Render())

	meshes := r.writesTo("meshes", 0)
	require.Len(t, meshes, 1)
	require.Len(t, meshes[0], 2*int(meshRecordSize))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(meshes[0][0:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(meshes[0][meshRecordSize:]))

	assert.False(t, s.RemoveMaterial(uuid.Nil))
	assert.True(t, s.RemoveMaterial(m.ID()))
	require.NoError(t, s.Render())
	meshes = r.writesTo("meshes", 0)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(meshes[0][meshRecordSize:]))
}

func TestRemoveInstanceKeepsTableDense(t *testing.T) {
	s, r := newTestScene(t)
	a, b, c := mesh.NewInstance(cube()), mesh.NewInstance(cube()), mesh.NewInstance(cube())
	s.AddInstance(a)
	s.AddInstance(b)
	s.AddInstance(c)

	moved, ok := s.RemoveInstance(a.ID())
	require.True(t, ok)
	assert.Equal(t, c.ID(), moved)
	_, ok = s.RemoveInstance(a.ID())
	assert.False(t, ok)

	require.NoError(t, s.Render())
	assert.Len(t, r.writesTo("meshes", 0)[0], 2*int(meshRecordSize))
	assert.Equal(t, []mesh.Instance{c, b}, s.Instances())
}

func TestLightCountFollowsEnabledLights(t *testing.T) {
	s, r := newTestScene(t)
	on := light.NewLight(light.WithPosition([3]float32{0, 2, 0}))
	off := light.NewLight(light.WithEnabled(false))
	s.AddLight(on)
	s.AddLight(off)
	require.NoError(t, s.Render())

	cam := r.writesTo("camera", 0)
	require.Len(t, cam, 1)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(cam[0][144:]))
	assert.Len(t, r.writesTo("lights", 0)[0], int(lightRecordSize))

	assert.True(t, s.RemoveLight(on.ID()))
	require.NoError(t, s.Render())
	assert.Empty(t, r.writesTo("lights", 0))
}

// skewedCamera reports an unproj_view that is not the inverse of proj_view.
type skewedCamera struct {
	camera.Camera
}

func (c skewedCamera) Uniform(lightCount uint32) camera.GPUCameraUniform {
	u := c.Camera.Uniform(lightCount)
	u.UnprojView[0] += 1
	return u
}

func TestRenderAbandonsInconsistentFrame(t *testing.T) {
	r := newFakeRenderer()
	s, err := NewScene("skewed", skewedCamera{camera.NewCamera()}, r, WithShaderValidation(false))
	require.NoError(t, err)
	defer s.Release()
	s.AddInstance(mesh.NewInstance(cube()))

	err = s.Render()
	require.Error(t, err)
	assert.ErrorIs(t, err, resource.ErrInconsistentInvariant)
	assert.Empty(t, r.events)
}

func TestPlanRejectsDrawsOutsideMeshTable(t *testing.T) {
	s, _ := newTestScene(t, WithGrid(false, shading.DefaultGridParams()))
	s.AddInstance(mesh.NewInstance(cube()))
	s.AddInstance(mesh.NewInstance(cube()))

	f := s.snapshot()
	f.tables.Meshes = f.tables.Meshes[:1]
	for _, plan := range s.plan(f) {
		for _, d := range plan.draws {
			assert.Equal(t, uint32(0), d.payload.Mesh(), "pass %s", plan.desc.Kind)
		}
	}
}

func TestSelectOutlinesOneInstance(t *testing.T) {
	green := [3]float32{0, 1, 0}
	s, r := newTestScene(t, WithOutline(true, green, 0.2))
	a, b := mesh.NewInstance(cube()), mesh.NewInstance(cube())
	s.AddInstance(a)
	s.AddInstance(b)

	s.Select(a.ID())
	assert.Equal(t, a.ID(), s.Selected())
	gotColor, width := payload.DecodeOutline(a.Outline())
	assert.InDelta(t, 0.2, width, 1.0/255)
	assert.InDeltaSlice(t, green[:], gotColor[:], 1.0/255)

	s.Select(b.ID())
	assert.Zero(t, a.Outline())
	assert.NotZero(t, b.Outline())

	require.NoError(t, s.Render())
	outline := r.writesTo("outline_payload", 0)
	require.Len(t, outline, 1)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(outline[0]))
	assert.Equal(t, b.Outline(), binary.LittleEndian.Uint32(outline[0][4:]))

	s.RemoveInstance(b.ID())
	assert.Equal(t, uuid.Nil, s.Selected())
	s.Select(uuid.Nil)
	assert.Equal(t, uuid.Nil, s.Selected())
}

func TestPickResolvesLastFrame(t *testing.T) {
	s, r := newTestScene(t)
	a, b := mesh.NewInstance(cube()), mesh.NewInstance(cube())
	s.AddInstance(a)
	s.AddInstance(b)
	require.NoError(t, s.Render())

	r.pickID, r.pickHit = 1, true
	in, err := s.Pick(10, 10)
	require.NoError(t, err)
	assert.Equal(t, b, in)

	r.pickHit = false
	in, err = s.Pick(10, 10)
	require.NoError(t, err)
	assert.Nil(t, in)

	r.pickID, r.pickHit = 7, true
	_, err = s.Pick(10, 10)
	assert.ErrorIs(t, err, resource.ErrIndexOutOfRange)
}

func TestPickDisabled(t *testing.T) {
	s, _ := newTestScene(t, WithPicking(false))
	_, err := s.Pick(0, 0)
	assert.ErrorIs(t, err, renderer.ErrPickingDisabled)
}

func TestAddTextureResolvesInMaterials(t *testing.T) {
	s, r := newTestScene(t, WithTextureSet(texture.NewSet(4, 2)))
	id, err := s.AddTexture(texture.Solid(color.RGBA{R: 255, A: 255}), texture.SamplerNearestRepeat)
	require.NoError(t, err)
	_, err = s.AddTexture(texture.Solid(color.RGBA{G: 255, A: 255}), texture.SamplerLinearRepeat)
	assert.ErrorIs(t, err, texture.ErrSetFull)

	m := material.NewMaterial(material.WithTexture(material.ChannelAlbedo, id))
	s.AddMaterial(m)
	require.NoError(t, s.Render())

	mats := r.writesTo("materials", materialsBinding)
	require.Len(t, mats, 1)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(mats[0][int(materialRecordSize)+48:]))
	assert.Len(t, r.writesTo("materials", textureEntriesBinding)[0], 2*int(textureEntrySize))
}

func TestReloadRebuildsPipelinesUsingShader(t *testing.T) {
	dir := t.TempDir()
	entries, err := fs.ReadDir(shader.Builtin(), ".")
	require.NoError(t, err)
	for _, e := range entries {
		src, err := fs.ReadFile(shader.Builtin(), e.Name())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), src, 0o644))
	}

	s, r := newTestScene(t, WithShaderDir(dir, false))
	assert.Equal(t, 0, s.ReloadShaders())

	frag := r.pipelines["grid"].Shader(shader.ShaderTypeFragment)
	require.NoError(t, frag.Reload())
	assert.Equal(t, 1, s.applyReload(frag))
	assert.Equal(t, []string{"grid"}, r.rebuilt)
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Shading.Grid.Enabled = false
	cfg.Shading.Grid.Spacing = 2
	cfg.Shading.Outline.Color = []float32{0, 0, 1}
	cfg.Renderer.MaxDrawsPerFrame = 8

	s, r := newTestScene(t, WithConfig(cfg))
	assert.NotContains(t, r.pipelines, "grid")
	assert.Equal(t, float32(2), s.gridParams.Spacing)
	assert.Equal(t, [3]float32{0, 0, 1}, s.outlineColor)
	assert.Equal(t, 8, s.payloads[pipeline.PassPBR].Slots())
	assert.Equal(t, cfg.Textures.LayerSize, s.textures.LayerSize())
}

func float32FromBits(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func ExampleScene_Render() {
	r := newFakeRenderer()
	s, err := NewScene("example", camera.NewCamera(), r, WithShaderValidation(false))
	if err != nil {
		panic(err)
	}
	defer s.Release()

	s.AddInstance(mesh.NewInstance(mesh.Cube(1)))
	if err := s.Render(); err != nil {
		panic(err)
	}
	fmt.Println(r.events)
	// Output: [begin pbr grid picking_pass picking end present]
}
