package shader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// stageVisibility is applied to every reflected binding so a bind group built once can be
// shared by every pass that declares the same group.
const stageVisibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

// reflection is what pipeline creation needs from a shader module.
type reflection struct {
	entryPoint    string
	vertexBuffers []wgpu.VertexBufferLayout
	bindGroups    map[int]wgpu.BindGroupLayoutDescriptor
	bindingNames  map[int]map[int]string
}

// reflectWGSL outlines a module and derives its entry point, vertex input and bind group
// layouts for one stage.
//
// Parameters:
//   - source: WGSL source after preprocessing
//   - stage: the stage whose entry point and vertex input are wanted
//   - dynamic: group -> binding pairs whose buffer binding takes a dynamic offset
//
// Returns:
//   - *reflection: the reflected layouts
//   - error: a malformed module, a missing entry point or an unsupported declaration
func reflectWGSL(source string, stage ShaderType, dynamic map[int]map[int]bool) (*reflection, error) {
	m, err := parseWGSLModule(source)
	if err != nil {
		return nil, err
	}

	if stage != ShaderTypeVertex && stage != ShaderTypeFragment {
		return nil, fmt.Errorf("wgsl: cannot reflect %s", stage)
	}
	entry, ok := m.entry(stage.String())
	if !ok {
		return nil, fmt.Errorf("wgsl: no @%s entry point", stage)
	}

	r := &reflection{entryPoint: entry.name}
	if stage == ShaderTypeVertex {
		layout, err := vertexInput(entry, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.name, err)
		}
		if len(layout.Attributes) > 0 {
			r.vertexBuffers = []wgpu.VertexBufferLayout{layout}
		}
	}
	if r.bindGroups, r.bindingNames, err = bindGroupLayouts(m, dynamic); err != nil {
		return nil, err
	}
	return r, nil
}

// vertexAttribute returns the vertex format of a location-bound type and its packed size.
func vertexAttribute(typ string) (wgpu.VertexFormat, uint64, bool) {
	n, scalar := 1, typ
	if vn, vs, ok := vectorShape(typ); ok {
		n, scalar = vn, vs
	}
	formats := map[string][4]wgpu.VertexFormat{
		"f32": {wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4},
		"i32": {wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4},
		"u32": {wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4},
		"f16": {wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat16x2, wgpu.VertexFormatUndefined, wgpu.VertexFormatFloat16x4},
	}
	row, ok := formats[scalar]
	if !ok || row[n-1] == wgpu.VertexFormatUndefined {
		return wgpu.VertexFormatUndefined, 0, false
	}
	return row[n-1], uint64(n) * scalarBytes[scalar], true
}

// vertexInput packs the @location inputs of a vertex entry point into one interleaved buffer,
// in location order. Inputs come from struct parameters or from bare @location parameters;
// builtins such as vertex_index take no buffer space.
func vertexInput(entry wgslEntry, m *wgslModule) (wgpu.VertexBufferLayout, error) {
	var inputs []wgslMember
	for _, p := range entry.params {
		if s, ok := m.structs[p.typ]; ok {
			inputs = append(inputs, s.members...)
			continue
		}
		inputs = append(inputs, p)
	}

	type located struct {
		loc int
		typ string
	}
	var locs []located
	for _, in := range inputs {
		loc, ok := intAttr(in.attrs, "location")
		if !ok {
			continue
		}
		locs = append(locs, located{loc, in.typ})
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].loc < locs[j].loc })

	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, l := range locs {
		format, size, ok := vertexAttribute(l.typ)
		if !ok {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("location %d: %s is not a vertex format", l.loc, l.typ)
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(l.loc),
		})
		layout.ArrayStride += size
	}
	return layout, nil
}

// textureDimensions maps sampled texture types to their view dimension.
var textureDimensions = map[string]wgpu.TextureViewDimension{
	"texture_1d":         wgpu.TextureViewDimension1D,
	"texture_2d":         wgpu.TextureViewDimension2D,
	"texture_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_3d":         wgpu.TextureViewDimension3D,
	"texture_cube":       wgpu.TextureViewDimensionCube,
	"texture_cube_array": wgpu.TextureViewDimensionCubeArray,
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// bindingEntry classifies one bound var. Buffers are told apart by address space, handles by
// type: uniform and read-only storage buffers, sampled textures and filtering samplers.
func bindingEntry(v wgslVar, binding int, m *wgslModule, known map[string]typeLayout) (wgpu.BindGroupLayoutEntry, error) {
	e := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: stageVisibility}

	space, access, _ := strings.Cut(v.space, ", ")
	switch space {
	case "uniform":
		e.Buffer.Type = wgpu.BufferBindingTypeUniform
	case "storage":
		if access == "read_write" || access == "write" {
			return e, fmt.Errorf("var %s: writable storage is not supported", v.name)
		}
		e.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case "":
	default:
		return e, fmt.Errorf("var %s: address space %q cannot be bound", v.name, space)
	}
	if e.Buffer.Type != wgpu.BufferBindingTypeUndefined {
		l, err := layoutOf(v.typ, m, known)
		if err != nil {
			return e, fmt.Errorf("var %s: %w", v.name, err)
		}
		e.Buffer.MinBindingSize = l.size
		return e, nil
	}

	if v.typ == "sampler" {
		e.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		return e, nil
	}
	base, args := splitGeneric(v.typ)
	dim, ok := textureDimensions[base]
	if !ok || len(args) != 1 {
		return e, fmt.Errorf("var %s: unsupported binding type %s", v.name, v.typ)
	}
	st, ok := sampleTypes[args[0]]
	if !ok {
		return e, fmt.Errorf("var %s: unsupported sample type %s", v.name, args[0])
	}
	e.Texture.ViewDimension = dim
	e.Texture.SampleType = st
	return e, nil
}

// bindGroupLayouts collects every @group/@binding var into per-group layout descriptors with
// entries ordered by binding, plus the var name behind each binding.
func bindGroupLayouts(m *wgslModule, dynamic map[int]map[int]bool) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string, error) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	known := make(map[string]typeLayout)

	for _, v := range m.vars {
		group, hasGroup := intAttr(v.attrs, "group")
		binding, hasBinding := intAttr(v.attrs, "binding")
		if !hasGroup || !hasBinding {
			continue
		}
		if names[group][binding] != "" {
			return nil, nil, fmt.Errorf("wgsl: @group(%d) @binding(%d) declared twice", group, binding)
		}
		e, err := bindingEntry(v, binding, m, known)
		if err != nil {
			return nil, nil, err
		}
		if e.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			e.Buffer.HasDynamicOffset = dynamic[group][binding]
		}
		groups[group] = append(groups[group], e)
		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][binding] = v.name
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return out, names, nil
}
