package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// Shader sources carry line comments of the form //@oxy:<verb> <args...>. Three verbs exist:
//
//	//@oxy:include <struct>
//	//@oxy:group <group> <binding> <space> <var> <struct | array<struct>>
//	//@oxy:provider <group> <binding> <identity> [role]
//
// include pastes a record struct's WGSL once per shader, group generates the variable
// declaration of a table or uniform, and provider names the owner of a hand-written texture or
// sampler binding.
const annotationPrefix = "@oxy:"

// Ident is a name used as an annotation argument: a record struct, an address space, a
// provider identity or a binding role.
type Ident string

// Record structs. Each has a WGSL source embedded by the package that owns the Go type.
const (
	StructCamera         Ident = "camera"
	structVertex         Ident = "vertex"
	structGridVertex     Ident = "grid_vertex"
	StructMeshRecord     Ident = "mesh_record"
	StructMaterialRecord Ident = "material_record"
	StructTextureEntry   Ident = "texture_entry"
	StructLightRecord    Ident = "light_record"
	StructBasePayload    Ident = "base_payload"
	StructPickingPayload Ident = "picking_payload"
	StructOutlinePayload Ident = "outline_payload"
	StructGridParams     Ident = "grid_params"
)

// Address spaces of group annotations.
const (
	spaceUniform        Ident = "storage_uniform"
	spaceUniformDynamic Ident = "storage_uniform_dynamic"
	spaceStorageRead    Ident = "storage_read"
)

// addressSpaces maps an address space to the var<> it generates. The dynamic variant only
// differs in its layout entry.
var addressSpaces = map[Ident]string{
	spaceUniform:        "var<uniform>",
	spaceUniformDynamic: "var<uniform>",
	spaceStorageRead:    "var<storage, read>",
}

// Provider identities, one per bind group a pass can bind.
const (
	ProviderCamera    Ident = "camera"
	ProviderMeshes    Ident = "meshes"
	ProviderMaterials Ident = "materials"
	ProviderLights    Ident = "lights"
	ProviderPayload   Ident = "payload"
	ProviderGrid      Ident = "grid"
)

var providers = map[Ident]bool{
	ProviderCamera:    true,
	ProviderMeshes:    true,
	ProviderMaterials: true,
	ProviderLights:    true,
	ProviderPayload:   true,
	ProviderGrid:      true,
}

// Roles of the hand-written bindings in the materials group.
const (
	RoleTextureLayers        Ident = "texture_layers"
	RoleSamplerLinearRepeat  Ident = "sampler_linear_repeat"
	RoleSamplerLinearClamp   Ident = "sampler_linear_clamp"
	RoleSamplerNearestRepeat Ident = "sampler_nearest_repeat"
)

var roles = map[Ident]bool{
	RoleTextureLayers:        true,
	RoleSamplerLinearRepeat:  true,
	RoleSamplerLinearClamp:   true,
	RoleSamplerNearestRepeat: true,
}

// DeclarationKind tells generated bindings from hand-written ones.
type DeclarationKind int

const (
	// DeclarationGroup came from a group annotation; its WGSL was generated.
	DeclarationGroup DeclarationKind = iota + 1
	// DeclarationProvider came from a provider annotation; the WGSL follows it in the source.
	DeclarationProvider
)

func (k DeclarationKind) String() string {
	switch k {
	case DeclarationGroup:
		return "group"
	case DeclarationProvider:
		return "provider"
	default:
		return fmt.Sprintf("DeclarationKind(%d)", int(k))
	}
}

// Declaration is a binding announced by a group or provider annotation. Passes check the
// declarations of their shaders against the group order they bind tables in.
type Declaration struct {
	Kind DeclarationKind
	// Line is the 1-based source line of the annotation.
	Line    int
	Group   int
	Binding int
	// Owner is the provider identity. Group declarations derive it from the record struct.
	Owner Ident

	// Space, Var, Struct and Array are set for group declarations only.
	Space  Ident
	Var    string
	Struct Ident
	Array  bool

	// Role is set for provider declarations that name one.
	Role Ident
}

// Dynamic reports whether the binding takes a dynamic offset.
func (d Declaration) Dynamic() bool {
	return d.Kind == DeclarationGroup && d.Space == spaceUniformDynamic
}

// directive is one parsed annotation line. Exactly one of include and decl is set.
type directive struct {
	include Ident
	decl    *Declaration
}

type directiveParser func(args []string, line int) (directive, error)

var directiveParsers = map[string]directiveParser{
	"include":  parseInclude,
	"group":    parseGroup,
	"provider": parseProvider,
}

// parseDirective parses one source line. ok is false for lines that are not an annotation,
// including code that merely mentions the prefix outside a comment.
func parseDirective(text string, line int) (d directive, ok bool, err error) {
	comment, found := strings.CutPrefix(strings.TrimSpace(text), "//")
	if !found {
		return directive{}, false, nil
	}
	_, body, found := strings.Cut(comment, annotationPrefix)
	if !found {
		return directive{}, false, nil
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return directive{}, false, fmt.Errorf("line %d: empty @oxy annotation", line)
	}
	parse, known := directiveParsers[fields[0]]
	if !known {
		return directive{}, false, fmt.Errorf("line %d: unknown @oxy annotation type %q", line, fields[0])
	}
	d, err = parse(fields[1:], line)
	if err != nil {
		return directive{}, false, err
	}
	return d, true, nil
}

func parseInclude(args []string, line int) (directive, error) {
	if len(args) != 1 {
		return directive{}, fmt.Errorf("line %d: include takes one struct type, got %d arguments", line, len(args))
	}
	s := Ident(args[0])
	if _, ok := structs[s]; !ok {
		return directive{}, fmt.Errorf("line %d: unknown struct type %q", line, s)
	}
	return directive{include: s}, nil
}

func parseGroup(args []string, line int) (directive, error) {
	if len(args) != 5 {
		return directive{}, fmt.Errorf("line %d: group takes group, binding, address space, var name and type, got %d arguments", line, len(args))
	}
	d, err := slot(DeclarationGroup, args[0], args[1], line)
	if err != nil {
		return directive{}, err
	}

	d.Space, d.Var = Ident(args[2]), args[3]
	if _, ok := addressSpaces[d.Space]; !ok {
		return directive{}, fmt.Errorf("line %d: unknown address space %q", line, d.Space)
	}
	typ := args[4]
	if inner, ok := strings.CutPrefix(typ, "array<"); ok {
		typ, d.Array = strings.TrimSuffix(inner, ">"), true
		if d.Space != spaceStorageRead {
			return directive{}, fmt.Errorf("line %d: runtime-sized %s needs the %s address space", line, args[4], spaceStorageRead)
		}
	}
	d.Struct = Ident(typ)
	info, ok := structs[d.Struct]
	if !ok || info.owner == "" {
		return directive{}, fmt.Errorf("line %d: unknown struct type %q for a bound variable", line, typ)
	}
	d.Owner = info.owner
	return directive{decl: d}, nil
}

func parseProvider(args []string, line int) (directive, error) {
	if len(args) != 3 && len(args) != 4 {
		return directive{}, fmt.Errorf("line %d: provider takes group, binding, identity and an optional binding role, got %d arguments", line, len(args))
	}
	d, err := slot(DeclarationProvider, args[0], args[1], line)
	if err != nil {
		return directive{}, err
	}
	d.Owner = Ident(args[2])
	if !providers[d.Owner] {
		return directive{}, fmt.Errorf("line %d: unknown provider identity %q", line, d.Owner)
	}
	if len(args) == 4 {
		d.Role = Ident(args[3])
		if !roles[d.Role] {
			return directive{}, fmt.Errorf("line %d: unknown binding role %q", line, d.Role)
		}
	}
	return directive{decl: d}, nil
}

// slot starts a declaration from its group and binding arguments.
func slot(kind DeclarationKind, group, binding string, line int) (*Declaration, error) {
	d := &Declaration{Kind: kind, Line: line}
	for _, f := range []struct {
		what string
		raw  string
		dst  *int
	}{{"group", group, &d.Group}, {"binding", binding, &d.Binding}} {
		v, err := strconv.Atoi(f.raw)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("line %d: %s must be a non-negative integer, got %q", line, f.what, f.raw)
		}
		*f.dst = v
	}
	return d, nil
}
