package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrLayoutMismatch is returned by PassDescriptor.Verify when a shader's declared groups do not
// match the tables the pass binds.
var ErrLayoutMismatch = errors.New("shader layout does not match pass")

// PassKind enumerates the shading passes. The values are ordered the way a frame submits them.
type PassKind int

const (
	// PassPBR shades every mesh with Cook-Torrance lighting.
	PassPBR PassKind = iota
	// PassOutline draws a dilated back-facing shell around selected meshes.
	PassOutline
	// PassGrid draws the infinite ground grid from a full-screen quad.
	PassGrid
	// PassPicking writes mesh identifiers into the offscreen picking target.
	PassPicking
)

// String returns the pass name, also used as the pipeline key.
func (k PassKind) String() string {
	switch k {
	case PassPBR:
		return "pbr"
	case PassOutline:
		return "outline"
	case PassGrid:
		return "grid"
	case PassPicking:
		return "picking"
	default:
		return "unknown"
	}
}

// Group names the table or uniform a pass binds at one bind group index.
type Group int

const (
	GroupCamera Group = iota
	GroupMeshes
	GroupMaterials
	GroupLights
	GroupPayload
	GroupGrid
)

func (g Group) String() string {
	return string(g.Provider())
}

// Provider returns the provider identity a shader annotation must name for the group.
func (g Group) Provider() shader.Ident {
	switch g {
	case GroupCamera:
		return shader.ProviderCamera
	case GroupMeshes:
		return shader.ProviderMeshes
	case GroupMaterials:
		return shader.ProviderMaterials
	case GroupLights:
		return shader.ProviderLights
	case GroupPayload:
		return shader.ProviderPayload
	case GroupGrid:
		return shader.ProviderGrid
	default:
		return ""
	}
}

// payloadStructs maps each payload kind to the record struct a dynamic binding must declare.
var payloadStructs = map[payload.Kind]shader.Ident{
	payload.KindBase:    shader.StructBasePayload,
	payload.KindPicking: shader.StructPickingPayload,
	payload.KindOutline: shader.StructOutlinePayload,
}

// PassDescriptor describes one shading pass: the tables it binds, in group order, the
// payload variant each draw carries and the fixed-function state of its pipeline.
type PassDescriptor struct {
	// Kind identifies the pass.
	Kind PassKind
	// Payload is the per-draw payload variant, payload.KindNone for passes without draws per mesh.
	Payload payload.Kind
	// Groups lists the bound tables; the slice index is the bind group index.
	Groups []Group
	// Target is the color attachment the pass renders into.
	Target Target
	// VertexShader and FragmentShader name the WGSL sources of the pass.
	VertexShader, FragmentShader string
	// FullscreenQuad marks passes that draw a fixed quad instead of scene meshes.
	FullscreenQuad bool
}

var passes = []PassDescriptor{
	{
		Kind:           PassPBR,
		Payload:        payload.KindBase,
		Groups:         []Group{GroupCamera, GroupMeshes, GroupMaterials, GroupLights, GroupPayload},
		Target:         TargetSurface,
		VertexShader:   "pbr-vert.wgsl",
		FragmentShader: "pbr-frag.wgsl",
	},
	{
		Kind:           PassOutline,
		Payload:        payload.KindOutline,
		Groups:         []Group{GroupCamera, GroupMeshes, GroupPayload},
		Target:         TargetSurface,
		VertexShader:   "outline-vert.wgsl",
		FragmentShader: "outline-frag.wgsl",
	},
	{
		Kind:           PassGrid,
		Payload:        payload.KindNone,
		Groups:         []Group{GroupCamera, GroupGrid},
		Target:         TargetSurface,
		VertexShader:   "grid-vert.wgsl",
		FragmentShader: "grid-frag.wgsl",
		FullscreenQuad: true,
	},
	{
		Kind:           PassPicking,
		Payload:        payload.KindPicking,
		Groups:         []Group{GroupCamera, GroupMeshes, GroupPayload},
		Target:         TargetPicking,
		VertexShader:   "picking-vert.wgsl",
		FragmentShader: "picking-frag.wgsl",
	},
}

// Passes returns the descriptors of every pass in submission order.
//
// Returns:
//   - []PassDescriptor: PBR, Outline, Grid, Picking
func Passes() []PassDescriptor {
	out := make([]PassDescriptor, len(passes))
	copy(out, passes)
	return out
}

// Describe returns the descriptor of a single pass.
//
// Parameters:
//   - kind: the pass to describe
//
// Returns:
//   - PassDescriptor: the descriptor
//   - bool: false if kind is not a known pass
func Describe(kind PassKind) (PassDescriptor, bool) {
	for _, d := range passes {
		if d.Kind == kind {
			return d, true
		}
	}
	return PassDescriptor{}, false
}

// Key returns the pipeline key of the pass.
func (d PassDescriptor) Key() string {
	return d.Kind.String()
}

// GroupIndex returns the bind group index the pass binds g at.
//
// Parameters:
//   - g: the group to look up
//
// Returns:
//   - int: the bind group index
//   - bool: false if the pass does not bind g
func (d PassDescriptor) GroupIndex(g Group) (int, bool) {
	for i, bound := range d.Groups {
		if bound == g {
			return i, true
		}
	}
	return 0, false
}

// Options returns the pipeline builder options for the fixed-function state of the pass.
// Mesh passes cull back faces; the outline culls front faces so only the dilated shell behind
// the mesh shows. Overlays test depth without writing it, and the grid blends over the scene.
func (d PassDescriptor) Options() []PipelineBuilderOption {
	opts := []PipelineBuilderOption{WithTarget(d.Target)}
	switch d.Kind {
	case PassPBR, PassPicking:
		opts = append(opts, WithDepth(true, true), WithCullMode(wgpu.CullModeBack))
	case PassOutline:
		opts = append(opts, WithDepth(true, false), WithCullMode(wgpu.CullModeFront))
	case PassGrid:
		blend := AlphaBlend
		opts = append(opts, WithDepth(true, false), WithCullMode(wgpu.CullModeNone), WithBlend(&blend))
	}
	return opts
}

// Verify checks the annotations of both shader stages against the pass. Every declaration must
// sit in a group the pass binds and name that group's provider, dynamic bindings may only appear
// in the payload group and must carry the pass's payload struct, and every group of the pass must
// be declared by at least one stage.
//
// Parameters:
//   - decls: the declarations of the vertex and fragment shader
//
// Returns:
//   - error: an error wrapping ErrLayoutMismatch describing every violation, or nil
func (d PassDescriptor) Verify(decls []shader.Declaration) error {
	var errs []error
	declared := make([]bool, len(d.Groups))

	for _, decl := range decls {
		g := decl.Group
		if g < 0 || g >= len(d.Groups) {
			errs = append(errs, fmt.Errorf("%s: line %d declares group %d, pass binds %d groups: %w", d.Kind, decl.Line, g, len(d.Groups), ErrLayoutMismatch))
			continue
		}
		declared[g] = true

		want := d.Groups[g]
		if got := decl.Owner; got != want.Provider() {
			errs = append(errs, fmt.Errorf("%s: group %d expects %s, line %d declares %s: %w", d.Kind, g, want, decl.Line, got, ErrLayoutMismatch))
			continue
		}
		if decl.Dynamic() != (want == GroupPayload) {
			errs = append(errs, fmt.Errorf("%s: group %d dynamic offset mismatch at line %d: %w", d.Kind, g, decl.Line, ErrLayoutMismatch))
			continue
		}
		if want == GroupPayload && decl.Struct != payloadStructs[d.Payload] {
			errs = append(errs, fmt.Errorf("%s: payload binding declares %s, pass carries %s: %w", d.Kind, decl.Struct, d.Payload, ErrLayoutMismatch))
		}
	}

	for g, ok := range declared {
		if !ok {
			errs = append(errs, fmt.Errorf("%s: group %d (%s) is not declared by either stage: %w", d.Kind, g, d.Groups[g], ErrLayoutMismatch))
		}
	}
	return errors.Join(errs...)
}

// NewPassPipeline verifies the shaders against the pass and creates its pipeline.
//
// Parameters:
//   - d: the pass descriptor
//   - vertex: the parsed vertex shader
//   - fragment: the parsed fragment shader
//
// Returns:
//   - Pipeline: the configured pipeline, not yet registered with the Renderer
//   - error: ErrLayoutMismatch if the shader declarations disagree with the pass
func NewPassPipeline(d PassDescriptor, vertex, fragment shader.Shader) (Pipeline, error) {
	decls := slices.Concat(vertex.Declarations(), fragment.Declarations())
	if err := d.Verify(decls); err != nil {
		return nil, err
	}
	opts := append(d.Options(), WithVertexShader(vertex), WithFragmentShader(fragment))
	return NewPipeline(d.Key(), opts...), nil
}
