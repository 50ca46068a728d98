package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		notOurs bool
		include Ident
		kind    DeclarationKind
		wantErr string
	}{
		{name: "plain code", line: "let x = 1.0;", notOurs: true},
		{name: "plain comment", line: "// just a comment", notOurs: true},
		{name: "annotation in code", line: `let s = "@oxy:include camera";`, notOurs: true},
		{name: "include", line: "//@oxy:include camera", include: StructCamera},
		{name: "indented group", line: "    //@oxy:group 1 0 storage_read meshes array<mesh_record>", kind: DeclarationGroup},
		{name: "provider with role", line: "//@oxy:provider 2 3 materials sampler_linear_repeat", kind: DeclarationProvider},
		{name: "unknown struct", line: "//@oxy:include frustum", wantErr: "unknown struct type"},
		{name: "vertex input bound", line: "//@oxy:group 0 0 storage_uniform v vertex", wantErr: "bound variable"},
		{name: "negative group", line: "//@oxy:group -1 0 storage_uniform camera camera", wantErr: "group must be"},
		{name: "array needs storage", line: "//@oxy:group 1 0 storage_uniform meshes array<mesh_record>", wantErr: "storage_read"},
		{name: "unknown address space", line: "//@oxy:group 0 0 storage_rw camera camera", wantErr: "address space"},
		{name: "unknown role", line: "//@oxy:provider 2 3 materials sampler_compare", wantErr: "binding role"},
		{name: "unknown verb", line: "//@oxy:bind 0 0", wantErr: "unknown @oxy annotation type"},
		{name: "empty", line: "//@oxy:", wantErr: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := parseDirective(tt.line, 7)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), "line 7")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, !tt.notOurs, ok)
			if tt.notOurs {
				return
			}
			if tt.include != "" {
				assert.Equal(t, tt.include, d.include)
				assert.Nil(t, d.decl)
				return
			}
			require.NotNil(t, d.decl)
			assert.Equal(t, tt.kind, d.decl.Kind)
			assert.Equal(t, 7, d.decl.Line)
		})
	}
}

func TestDeclarationOwner(t *testing.T) {
	d, _, err := parseDirective("//@oxy:group 1 0 storage_read meshes array<mesh_record>", 1)
	require.NoError(t, err)
	assert.Equal(t, ProviderMeshes, d.decl.Owner)
	assert.Equal(t, StructMeshRecord, d.decl.Struct)
	assert.True(t, d.decl.Array)
	assert.False(t, d.decl.Dynamic())

	d, _, err = parseDirective("//@oxy:group 4 0 storage_uniform_dynamic draw base_payload", 2)
	require.NoError(t, err)
	assert.Equal(t, ProviderPayload, d.decl.Owner)
	assert.True(t, d.decl.Dynamic())

	d, _, err = parseDirective("//@oxy:provider 2 2 materials texture_layers", 3)
	require.NoError(t, err)
	assert.Equal(t, ProviderMaterials, d.decl.Owner)
	assert.Equal(t, RoleTextureLayers, d.decl.Role)
	assert.Equal(t, 2, d.decl.Group)
	assert.Equal(t, 2, d.decl.Binding)
	assert.False(t, d.decl.Dynamic())
}

func TestExpand(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:include camera",
		"//@oxy:include camera",
		"//@oxy:include light_record",
		"//@oxy:group 0 0 storage_uniform camera camera",
		"//@oxy:group 3 0 storage_read lights array<light_record>",
		"//@oxy:provider 2 2 materials texture_layers",
		"@group(2) @binding(2) var texture_layers: texture_2d_array<f32>;",
	}, "\n")

	out, decls, err := Expand(src)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct CameraUniform"), "repeated include is emitted once")
	assert.Contains(t, out, "struct LightRecord")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> camera: CameraUniform;")
	assert.Contains(t, out, "@group(3) @binding(0) var<storage, read> lights: array<LightRecord>;")
	assert.NotContains(t, out, "@oxy:")

	require.Len(t, decls, 3)
	assert.Equal(t, DeclarationGroup, decls[0].Kind)
	assert.Equal(t, DeclarationProvider, decls[2].Kind)
	assert.Equal(t, 6, decls[2].Line)
}

func TestExpandIncludesPerCall(t *testing.T) {
	_, decls, err := Expand("//@oxy:include camera\n//@oxy:group 0 0 storage_uniform camera camera")
	require.NoError(t, err)
	require.Len(t, decls, 1)

	out, decls, err := Expand("//@oxy:include camera")
	require.NoError(t, err)
	assert.Empty(t, decls)
	assert.Contains(t, out, "struct CameraUniform")
}

func TestExpandRejectsMalformed(t *testing.T) {
	_, _, err := Expand("fn f() {}\n//@oxy:group 0 x storage_uniform camera camera")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func reflectGroups(t *testing.T, src string, dynamic map[int]map[int]bool) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	t.Helper()
	m, err := parseWGSLModule(src)
	require.NoError(t, err)
	layouts, names, err := bindGroupLayouts(m, dynamic)
	require.NoError(t, err)
	return layouts, names
}

func TestBindGroupLayoutSizes(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:include camera",
		"//@oxy:include mesh_record",
		"//@oxy:include material_record",
		"//@oxy:include texture_entry",
		"//@oxy:include light_record",
		"//@oxy:include base_payload",
		"//@oxy:include picking_payload",
		"//@oxy:include grid_params",
		"//@oxy:group 0 0 storage_uniform camera camera",
		"//@oxy:group 1 0 storage_read meshes array<mesh_record>",
		"//@oxy:group 2 0 storage_read materials array<material_record>",
		"//@oxy:group 2 1 storage_read texture_entries array<texture_entry>",
		"//@oxy:group 3 0 storage_read lights array<light_record>",
		"//@oxy:group 4 0 storage_uniform_dynamic draw base_payload",
		"//@oxy:group 5 0 storage_uniform_dynamic pick picking_payload",
		"//@oxy:group 6 0 storage_uniform grid grid_params",
	}, "\n")
	out, _, err := Expand(src)
	require.NoError(t, err)

	layouts, names := reflectGroups(t, out, map[int]map[int]bool{4: {0: true}, 5: {0: true}})

	tests := []struct {
		group, binding int
		size           uint64
		typ            wgpu.BufferBindingType
	}{
		{0, 0, 160, wgpu.BufferBindingTypeUniform},
		{1, 0, 160, wgpu.BufferBindingTypeReadOnlyStorage},
		{2, 0, 80, wgpu.BufferBindingTypeReadOnlyStorage},
		{2, 1, 8, wgpu.BufferBindingTypeReadOnlyStorage},
		{3, 0, 96, wgpu.BufferBindingTypeReadOnlyStorage},
		{4, 0, 4, wgpu.BufferBindingTypeUniform},
		{5, 0, 32, wgpu.BufferBindingTypeUniform},
		{6, 0, 12, wgpu.BufferBindingTypeUniform},
	}
	for _, tt := range tests {
		entries := layouts[tt.group].Entries
		require.Greater(t, len(entries), tt.binding, "group %d", tt.group)
		e := entries[tt.binding]
		assert.Equal(t, uint32(tt.binding), e.Binding)
		assert.Equal(t, tt.size, e.Buffer.MinBindingSize, "group %d binding %d", tt.group, tt.binding)
		assert.Equal(t, tt.typ, e.Buffer.Type, "group %d binding %d", tt.group, tt.binding)
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility)
		assert.Equal(t, tt.group >= 4 && tt.group <= 5, e.Buffer.HasDynamicOffset, "group %d", tt.group)
	}
	assert.Equal(t, "texture_entries", names[2][1])
}

func TestClassifyHandleTypes(t *testing.T) {
	src := "@group(2) @binding(2) var layers: texture_2d_array<f32>;\n@group(2) @binding(3) var s: sampler;"
	layouts, _ := reflectGroups(t, src, nil)
	entries := layouts[2].Entries
	require.Len(t, entries, 2)

	assert.Equal(t, wgpu.TextureViewDimension2DArray, entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[1].Sampler.Type)
}

func builtinType(name string) ShaderType {
	if strings.HasSuffix(name, "-vert.wgsl") {
		return ShaderTypeVertex
	}
	return ShaderTypeFragment
}

func TestBuiltinShadersParse(t *testing.T) {
	names := []string{
		"pbr-vert.wgsl", "pbr-frag.wgsl",
		"picking-vert.wgsl", "picking-frag.wgsl",
		"outline-vert.wgsl", "outline-frag.wgsl",
		"grid-vert.wgsl", "grid-frag.wgsl",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := NewShaderFromFS(name, builtinType(name), Builtin(), name)
			require.NoError(t, err)
			assert.NotContains(t, s.Source(), "@oxy:")
			assert.Empty(t, s.Path())
			require.NotNil(t, s.Module())
			assert.Equal(t, name, s.Module().Label)

			if s.ShaderType() == ShaderTypeVertex {
				assert.Equal(t, "vs_main", s.EntryPoint())
				assert.Len(t, s.VertexBuffers(), 1)
			} else {
				assert.Equal(t, "fs_main", s.EntryPoint())
				assert.Empty(t, s.VertexBuffers())
			}
		})
	}
}

func TestBuiltinVertexLayouts(t *testing.T) {
	pbr, err := NewShaderFromFS("pbr-vert", ShaderTypeVertex, Builtin(), "pbr-vert.wgsl")
	require.NoError(t, err)
	layout := pbr.VertexBuffers()
	require.Len(t, layout, 1)
	assert.Equal(t, uint64(48), layout[0].ArrayStride)
	require.Len(t, layout[0].Attributes, 4)
	assert.Equal(t, uint64(40), layout[0].Attributes[3].Offset)

	grid, err := NewShaderFromFS("grid-vert", ShaderTypeVertex, Builtin(), "grid-vert.wgsl")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), grid.VertexBuffers()[0].ArrayStride)
}

func TestBuiltinPBRFragmentGroups(t *testing.T) {
	s, err := NewShaderFromFS("pbr-frag", ShaderTypeFragment, Builtin(), "pbr-frag.wgsl")
	require.NoError(t, err)

	layouts := s.BindGroupLayoutDescriptors()
	assert.Contains(t, layouts, 0)
	assert.Len(t, layouts[2].Entries, 6)
	assert.Contains(t, layouts, 3)
	assert.NotContains(t, layouts, 1, "the fragment stage reads material ids from a varying")

	binding, ok := s.Binding(2, "sampler_linear_clamp")
	assert.True(t, ok)
	assert.Equal(t, 4, binding)

	var roles []Ident
	for _, d := range s.Declarations() {
		if d.Kind == DeclarationProvider {
			roles = append(roles, d.Role)
		}
	}
	assert.Equal(t, []Ident{
		RoleTextureLayers,
		RoleSamplerLinearRepeat,
		RoleSamplerLinearClamp,
		RoleSamplerNearestRepeat,
	}, roles)
}

func TestBuiltinShadersValidate(t *testing.T) {
	entries, err := os.ReadDir("assets")
	require.NoError(t, err)
	for _, e := range entries {
		name := e.Name()
		t.Run(name, func(t *testing.T) {
			s, err := NewShaderFromFS(name, builtinType(name), Builtin(), name)
			require.NoError(t, err)
			err = Validate(s.Source())
			if errors.Is(err, ErrValidationUnsupported) {
				t.Skipf("compiler does not support this shader yet: %v", err)
			}
			assert.NoError(t, err)
		})
	}
}

func TestRecordStructsCompile(t *testing.T) {
	for id := range structs {
		t.Run(string(id), func(t *testing.T) {
			src, _, err := Expand("//@oxy:include " + string(id) + `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`)
			require.NoError(t, err)
			err = Validate(src)
			if errors.Is(err, ErrValidationUnsupported) {
				t.Skipf("compiler does not support this struct yet: %v", err)
			}
			assert.NoError(t, err, "member names must not be WGSL keywords")
		})
	}
}

const minimalVertex = `//@oxy:include camera
//@oxy:group 0 0 storage_uniform camera camera

@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return camera.proj_view * vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

func writeSource(t *testing.T, path, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShader("empty", ShaderTypeVertex, "")
	assert.Error(t, err)

	_, err = NewShader("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "frag.wgsl")
	writeSource(t, path, minimalVertex)
	_, err = NewShader("wrong-stage", ShaderTypeFragment, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fragment")
}

func TestReloadKeepsPreviousStateOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.wgsl")
	writeSource(t, path, minimalVertex)

	s, err := NewShader("v", ShaderTypeVertex, path)
	require.NoError(t, err)
	before := s.Source()

	writeSource(t, path, "//@oxy:include nonsense\n")
	require.Error(t, s.Reload())
	assert.Equal(t, before, s.Source())
	assert.Equal(t, uint64(0), s.Generation())

	writeSource(t, path, "@vertex\nfn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0 0.0); }\n")
	err = s.Reload()
	if err == nil {
		t.Skip("compiler accepted malformed source")
	}
	assert.Equal(t, before, s.Source())
}

func TestReloadSwapsState(t *testing.T) {
	if err := Validate(mustExpand(t, minimalVertex)); err != nil && !errors.Is(err, ErrValidationUnsupported) {
		t.Skipf("compiler rejects the fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "v.wgsl")
	writeSource(t, path, minimalVertex)
	s, err := NewShader("v", ShaderTypeVertex, path)
	require.NoError(t, err)

	writeSource(t, path, strings.Replace(minimalVertex, "0.0, 0.0, 0.0", "1.0, 0.0, 0.0", 1))
	require.NoError(t, s.Reload())
	assert.Equal(t, uint64(1), s.Generation())
	assert.Contains(t, s.Source(), "vec4<f32>(1.0, 0.0, 0.0, 1.0)")
}

func mustExpand(t *testing.T, src string) string {
	t.Helper()
	out, _, err := Expand(src)
	require.NoError(t, err)
	return out
}

func TestWatcherReloadsChangedSource(t *testing.T) {
	if err := Validate(mustExpand(t, minimalVertex)); err != nil && !errors.Is(err, ErrValidationUnsupported) {
		t.Skipf("compiler rejects the fixture: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "v.wgsl")
	writeSource(t, path, minimalVertex)
	s, err := NewShader("v", ShaderTypeVertex, path)
	require.NoError(t, err)

	w, err := NewWatcher(WithReloadBuffer(4))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(s))

	writeSource(t, path, strings.Replace(minimalVertex, "0.0, 0.0, 0.0", "2.0, 0.0, 0.0", 1))

	select {
	case got := <-w.Reloaded():
		assert.Equal(t, "v", got.Key())
		assert.Contains(t, got.Source(), "2.0, 0.0, 0.0")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatcherIgnoresEmbeddedShaders(t *testing.T) {
	s, err := NewShaderFromFS("grid-vert", ShaderTypeVertex, Builtin(), "grid-vert.wgsl")
	require.NoError(t, err)

	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Watch(s))
	require.NoError(t, w.Close())
	assert.Error(t, w.Watch(&shader{key: "x", src: origin{path: "x.wgsl"}}), "closed watcher rejects new shaders")
}
