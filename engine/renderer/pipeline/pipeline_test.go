package pipeline

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPass(t *testing.T, d PassDescriptor) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, err := shader.NewShaderFromFS(d.Key()+"-vert", shader.ShaderTypeVertex, shader.Builtin(), d.VertexShader)
	require.NoError(t, err)
	fs, err := shader.NewShaderFromFS(d.Key()+"-frag", shader.ShaderTypeFragment, shader.Builtin(), d.FragmentShader)
	require.NoError(t, err)
	return vs, fs
}

func TestPassesOrder(t *testing.T) {
	var kinds []PassKind
	for _, d := range Passes() {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []PassKind{PassPBR, PassOutline, PassGrid, PassPicking}, kinds)

	d, ok := Describe(PassPicking)
	require.True(t, ok)
	assert.Equal(t, TargetPicking, d.Target)
	assert.Equal(t, payload.KindPicking, d.Payload)

	_, ok = Describe(PassKind(42))
	assert.False(t, ok)
}

func TestPassesReturnsCopy(t *testing.T) {
	p := Passes()
	p[0].Kind = PassGrid
	assert.Equal(t, PassPBR, Passes()[0].Kind)
}

func TestGroupIndex(t *testing.T) {
	pbr, _ := Describe(PassPBR)
	idx, ok := pbr.GroupIndex(GroupPayload)
	require.True(t, ok)
	assert.Equal(t, 4, idx)

	grid, _ := Describe(PassGrid)
	_, ok = grid.GroupIndex(GroupMeshes)
	assert.False(t, ok)
	idx, ok = grid.GroupIndex(GroupGrid)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestBuiltinShadersMatchPasses(t *testing.T) {
	for _, d := range Passes() {
		t.Run(d.Key(), func(t *testing.T) {
			vs, fs := loadPass(t, d)
			p, err := NewPassPipeline(d, vs, fs)
			require.NoError(t, err)
			assert.Equal(t, d.Key(), p.PipelineKey())
			assert.Equal(t, d.Target, p.Target())
			assert.Equal(t, len(d.Groups), GroupCount(p.Layouts()))
		})
	}
}

func TestVerifyRejectsMismatchedShaders(t *testing.T) {
	pbr, _ := Describe(PassPBR)
	vs, fs := loadPass(t, pbr)

	picking, _ := Describe(PassPicking)
	_, err := NewPassPipeline(picking, vs, fs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Contains(t, err.Error(), "group 4")
}

func TestVerifyRejectsWrongPayloadStruct(t *testing.T) {
	picking, _ := Describe(PassPicking)
	vs, fs := loadPass(t, picking)

	outline := picking
	outline.Kind = PassOutline
	outline.Payload = payload.KindOutline
	err := outline.Verify(slices.Concat(vs.Declarations(), fs.Declarations()))
	require.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Contains(t, err.Error(), "picking_payload")
}

func TestVerifyRequiresEveryGroup(t *testing.T) {
	grid, _ := Describe(PassGrid)
	vs, _ := loadPass(t, grid)

	err := grid.Verify(vs.Declarations())
	require.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Contains(t, err.Error(), "group 1 (grid)")
}

func TestPassOptions(t *testing.T) {
	tests := []struct {
		kind       PassKind
		depthWrite bool
		cull       wgpu.CullMode
		blend      bool
	}{
		{PassPBR, true, wgpu.CullModeBack, false},
		{PassOutline, false, wgpu.CullModeFront, false},
		{PassGrid, false, wgpu.CullModeNone, true},
		{PassPicking, true, wgpu.CullModeBack, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d, _ := Describe(tt.kind)
			st := NewPipeline(d.Key(), d.Options()...).State()
			assert.True(t, st.DepthTest)
			assert.Equal(t, wgpu.CompareFunctionLess, st.DepthCompare)
			assert.Equal(t, tt.depthWrite, st.DepthWrite)
			assert.Equal(t, tt.cull, st.Cull)
			assert.Equal(t, tt.blend, st.Blend != nil)
			assert.Equal(t, d.Target, st.Target)
		})
	}
}

func TestStateDescriptors(t *testing.T) {
	st := NewPipeline("overlay",
		WithDepth(false, false),
		WithDepthBias(-2, 1.5),
		WithBlend(&AlphaBlend),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithFrontFace(wgpu.FrontFaceCW),
		WithTopology(wgpu.PrimitiveTopologyLineList),
	).State()

	ds := st.DepthStencil(wgpu.TextureFormatDepth24Plus)
	assert.Equal(t, wgpu.CompareFunctionAlways, ds.DepthCompare, "disabled test passes every fragment")
	assert.False(t, ds.DepthWriteEnabled)
	assert.Equal(t, int32(-2), ds.DepthBias)
	assert.Equal(t, float32(1.5), ds.DepthBiasSlopeScale)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, ds.Format)

	ct := st.ColorTarget(wgpu.TextureFormatBGRA8Unorm)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, ct.Format)
	assert.Equal(t, wgpu.ColorWriteMaskRed, ct.WriteMask)
	require.NotNil(t, ct.Blend)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, ct.Blend.Color.SrcFactor)

	prim := st.Primitive()
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, prim.Topology)
	assert.Equal(t, wgpu.FrontFaceCW, prim.FrontFace)
	assert.Equal(t, wgpu.CullModeNone, prim.CullMode)

	opaque := NewPipeline("opaque", WithState(State{DepthTest: true, DepthCompare: wgpu.CompareFunctionLessEqual})).State()
	assert.Nil(t, opaque.ColorTarget(wgpu.TextureFormatBGRA8Unorm).Blend)
	assert.Equal(t, wgpu.CompareFunctionLessEqual, opaque.DepthStencil(wgpu.TextureFormatDepth24Plus).DepthCompare)
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Label: "camera", Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex}}},
		1: {Label: "meshes", Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex}}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Label: "camera", Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 1, Visibility: wgpu.ShaderStageFragment},
			{Binding: 0, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{HasDynamicOffset: true}},
		}},
		3: {Label: "lights", Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageFragment}}},
	}

	merged := MergeBindGroupLayouts(vertex, fragment)
	require.Len(t, merged, 3)
	assert.Equal(t, 4, GroupCount(merged))

	camera := merged[0].Entries
	require.Len(t, camera, 2)
	assert.Equal(t, uint32(0), camera[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, camera[0].Visibility)
	assert.True(t, camera[0].Buffer.HasDynamicOffset)
	assert.Equal(t, uint32(1), camera[1].Binding)

	assert.Equal(t, "meshes", merged[1].Label)
	assert.Equal(t, "lights", merged[3].Label)
	assert.Equal(t, 0, GroupCount(nil))
}

func TestStaleBeforeRegistration(t *testing.T) {
	d, _ := Describe(PassGrid)
	vs, fs := loadPass(t, d)
	p, err := NewPassPipeline(d, vs, fs)
	require.NoError(t, err)
	assert.False(t, p.Stale())
	assert.Nil(t, p.Pipeline())
	assert.Nil(t, p.BindGroupLayouts())
	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, p.Shader(shader.ShaderTypeFragment))
}
