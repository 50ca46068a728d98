package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWGSLModuleOutline(t *testing.T) {
	src := `
/* header /* nested */ still comment */
const SCALE: f32 = 2.5; // trailing
alias Color = vec4<f32>;

struct Light {
    @align(16) position: vec3<f32>,
    color: vec3f,
};

@group(1) @binding(0) var<storage, read> lights: array<Light>;

fn helper(x: f32) -> f32 { if (x > 1.0) { return x; } return 0.0; }

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    var p = vec4<f32>(0.0, 0.0, 0.0, 1.0);
    return p;
}
`
	m, err := parseWGSLModule(src)
	require.NoError(t, err)

	assert.Equal(t, []string{"Light"}, m.order)
	light := m.structs["Light"]
	require.Len(t, light.members, 2)
	assert.Equal(t, "vec3<f32>", light.members[0].typ)
	align, ok := intAttr(light.members[0].attrs, "align")
	assert.True(t, ok)
	assert.Equal(t, 16, align)

	require.Len(t, m.vars, 1)
	assert.Equal(t, "storage, read", m.vars[0].space)
	assert.Equal(t, "array<Light>", m.vars[0].typ)

	require.Len(t, m.entries, 1, "helper is not an entry point")
	vs, ok := m.entry("vertex")
	require.True(t, ok)
	assert.Equal(t, "vs_main", vs.name)
	_, ok = m.entry("fragment")
	assert.False(t, ok)
}

func TestParseWGSLModuleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated comment", "/* open"},
		{"unbalanced body", "@fragment fn fs_main() { if (true) { }"},
		{"dangling attribute", "@group(0)"},
		{"member without type", "struct S { a: }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseWGSLModule(tt.src)
			assert.Error(t, err)
		})
	}
}

func TestTypeLayouts(t *testing.T) {
	m, err := parseWGSLModule(`
struct Basis { m: mat3x3<f32>, v: vec3<f32>, s: f32 }
struct Padded { @align(16) a: f32, @size(20) b: f32 }
struct Counted { count: u32, items: array<vec4<f32>> }
`)
	require.NoError(t, err)
	known := map[string]typeLayout{}

	tests := []struct {
		typ         string
		size, align uint64
	}{
		{"f32", 4, 4},
		{"vec3h", 6, 8},
		{"vec3<u32>", 12, 16},
		{"mat2x2f", 16, 8},
		{"mat4x3<f32>", 64, 16},
		{"array<vec3<f32>, 3>", 48, 16},
		{"array<f32, 4u>", 16, 4},
		{"Basis", 64, 16},
		{"Padded", 32, 16},
		{"Counted", 16, 16},
		{"array<Basis>", 64, 16},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			l, err := layoutOf(tt.typ, m, known)
			require.NoError(t, err)
			assert.Equal(t, tt.size, l.size)
			assert.Equal(t, tt.align, l.align)
		})
	}

	_, err = layoutOf("Missing", m, known)
	assert.Error(t, err)
	_, err = layoutOf("array<f32, 0>", m, known)
	assert.Error(t, err)
}

func TestRecursiveStructIsRejected(t *testing.T) {
	m, err := parseWGSLModule("struct Node { next: array<Node, 2> }")
	require.NoError(t, err)
	_, err = layoutOf("Node", m, map[string]typeLayout{})
	assert.ErrorContains(t, err, "contains itself")
}

func TestVertexInputFromLocationParams(t *testing.T) {
	src := `
@vertex
fn vs_main(@builtin(vertex_index) vi: u32, @location(1) uv: vec2f, @location(0) pos: vec3<f32>) -> @builtin(position) vec4f {
    return vec4f(pos, 1.0);
}`
	r, err := reflectWGSL(src, ShaderTypeVertex, nil)
	require.NoError(t, err)
	require.Len(t, r.vertexBuffers, 1)

	layout := r.vertexBuffers[0]
	assert.Equal(t, uint64(20), layout.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layout.StepMode)
	assert.Equal(t, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
	}, layout.Attributes)
}

func TestVertexInputWithoutLocations(t *testing.T) {
	r, err := reflectWGSL("@vertex fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4f { return vec4f(); }", ShaderTypeVertex, nil)
	require.NoError(t, err)
	assert.Empty(t, r.vertexBuffers)
}

func TestReflectRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no entry", "fn helper() {}", "no @fragment entry point"},
		{"writable storage", "@group(0) @binding(0) var<storage, read_write> x: array<f32>;\n@fragment fn fs_main() {}", "writable"},
		{"duplicate binding", "@group(0) @binding(0) var a: sampler;\n@group(0) @binding(0) var b: sampler;\n@fragment fn fs_main() {}", "declared twice"},
		{"depth texture", "@group(0) @binding(0) var t: texture_depth_2d;\n@fragment fn fs_main() {}", "unsupported binding type"},
		{"unknown struct", "@group(0) @binding(0) var<uniform> u: Missing;\n@fragment fn fs_main() {}", "unknown type"},
		{"private binding", "@group(0) @binding(0) var<private> p: f32;\n@fragment fn fs_main() {}", "cannot be bound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reflectWGSL(tt.src, ShaderTypeFragment, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := reflectWGSL("@vertex fn vs_main(@location(0) m: mat2x2f) -> @builtin(position) vec4f { return vec4f(); }", ShaderTypeVertex, nil)
	assert.ErrorContains(t, err, "not a vertex format")
}

func TestDynamicOffsetsApplyToBuffersOnly(t *testing.T) {
	src := `
struct Draw { index: u32 }
@group(4) @binding(0) var<uniform> draw: Draw;
@group(4) @binding(1) var s: sampler;
@fragment fn fs_main() {}
`
	r, err := reflectWGSL(src, ShaderTypeFragment, map[int]map[int]bool{4: {0: true, 1: true}})
	require.NoError(t, err)
	entries := r.bindGroups[4].Entries
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Buffer.HasDynamicOffset)
	assert.Equal(t, uint64(4), entries[0].Buffer.MinBindingSize)
	assert.False(t, entries[1].Buffer.HasDynamicOffset)
	assert.Equal(t, "s", r.bindingNames[4][1])
}
