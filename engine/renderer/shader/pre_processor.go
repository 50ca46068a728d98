package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
	"github.com/Carmen-Shannon/oxy-shade/engine/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
)

// includeStruct is a record struct an annotation can refer to.
type includeStruct struct {
	// source is the struct definition pasted by include.
	source string
	// name is the WGSL type name generated declarations use.
	name string
	// owner is the provider that binds variables of this type, empty for vertex inputs.
	owner Ident
}

var structs = map[Ident]includeStruct{
	StructCamera:         {camera.GPUCameraUniformSource, "CameraUniform", ProviderCamera},
	structVertex:         {mesh.GPUVertexSource, "VertexInput", ""},
	structGridVertex:     {mesh.GPUGridVertexSource, "GridVertexInput", ""},
	StructMeshRecord:     {mesh.GPUMeshRecordSource, "MeshRecord", ProviderMeshes},
	StructMaterialRecord: {material.GPUMaterialRecordSource, "MaterialRecord", ProviderMaterials},
	StructTextureEntry:   {texture.GPUTextureEntrySource, "TextureEntry", ProviderMaterials},
	StructLightRecord:    {light.GPULightRecordSource, "LightRecord", ProviderLights},
	StructBasePayload:    {payload.BasePayloadSource, "BasePayload", ProviderPayload},
	StructPickingPayload: {payload.PickingPayloadSource, "PickingPayload", ProviderPayload},
	StructOutlinePayload: {payload.OutlinePayloadSource, "OutlinePayload", ProviderPayload},
	StructGridParams:     {shading.GridParamsSource, "GridParams", ProviderGrid},
}

// generate renders the WGSL variable declaration of a group declaration.
func (d *Declaration) generate() string {
	typ := structs[d.Struct].name
	if d.Array {
		typ = "array<" + typ + ">"
	}
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", d.Group, d.Binding, addressSpaces[d.Space], d.Var, typ)
}

// Expand replaces the annotations of a WGSL source. Includes become the struct definition,
// the first time a struct is included, and nothing after that. Group annotations become their
// variable declaration. Provider annotations are dropped.
//
// Parameters:
//   - source: WGSL with @oxy annotations
//
// Returns:
//   - string: plain WGSL
//   - []Declaration: the group and provider declarations in source order
//   - error: the first malformed annotation
func Expand(source string) (string, []Declaration, error) {
	var (
		out      strings.Builder
		decls    []Declaration
		included = make(map[Ident]bool)
	)
	out.Grow(len(source))

	for i, text := range strings.Split(source, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		d, ok, err := parseDirective(text, i+1)
		if err != nil {
			return "", nil, err
		}
		switch {
		case !ok:
			out.WriteString(text)
		case d.decl != nil:
			if d.decl.Kind == DeclarationGroup {
				out.WriteString(d.decl.generate())
			}
			decls = append(decls, *d.decl)
		case !included[d.include]:
			included[d.include] = true
			out.WriteString(strings.TrimRight(structs[d.include].source, "\n"))
		}
	}
	return out.String(), decls, nil
}
