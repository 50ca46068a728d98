// Package payload defines the small per-draw parameter blocks handed to a pass by value.
// Each draw gets its own slot in a dynamic-offset uniform buffer, so payloads are never
// stored in bulk tables.
package payload

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// MaxSize is the largest payload any pass accepts, in bytes.
const MaxSize = 32

// SlotStride is the distance between per-draw payload slots. It equals the WebGPU default
// minUniformBufferOffsetAlignment, the finest granularity a dynamic offset may take.
const SlotStride = 256

// Kind identifies the payload variant a pass expects.
type Kind int

const (
	// KindBase carries only the mesh index. Used by the PBR pass.
	KindBase Kind = iota
	// KindPicking adds the identifier color. Used by the picking pass.
	KindPicking
	// KindOutline adds the packed outline color and width. Used by the outline pass.
	KindOutline
	// KindNone marks passes that take no per-draw payload, such as the grid.
	KindNone
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindPicking:
		return "picking"
	case KindOutline:
		return "outline"
	case KindNone:
		return "none"
	default:
		return "unknown"
	}
}

// BasePayloadSource is the WGSL definition of BasePayload (4 bytes).
//
//go:embed assets/base_payload.wgsl
var BasePayloadSource string

// PickingPayloadSource is the WGSL definition of PickingPayload (32 bytes).
//
//go:embed assets/picking_payload.wgsl
var PickingPayloadSource string

// OutlinePayloadSource is the WGSL definition of OutlinePayload (8 bytes).
//
//go:embed assets/outline_payload.wgsl
var OutlinePayloadSource string

// Payload is implemented by every per-draw parameter block.
type Payload interface {
	// Kind returns the payload variant.
	//
	// Returns:
	//   - Kind: the variant
	Kind() Kind

	// Mesh returns the mesh table index the draw resolves its transform from.
	//
	// Returns:
	//   - uint32: the mesh index
	Mesh() uint32

	// Size returns the marshalled size in bytes.
	//
	// Returns:
	//   - int: the size, never above MaxSize
	Size() int

	// Marshal serializes the payload in its WGSL layout.
	//
	// Returns:
	//   - []byte: Size() bytes
	Marshal() []byte
}

// Base is the PBR pass payload.
type Base struct {
	MeshIndex uint32 // offset 0 (u32)
}

// Picking is the picking pass payload.
type Picking struct {
	MeshIndex uint32     // offset  0 (u32)
	IDColor   [4]float32 // offset 16: identifier color written verbatim (vec4<f32>)
}

// Outline is the outline pass payload.
type Outline struct {
	MeshIndex uint32 // offset 0 (u32)
	Outline   uint32 // offset 4: r<<24 | g<<16 | b<<8 | width (u32)
}

var (
	_ Payload = Base{}
	_ Payload = Picking{}
	_ Payload = Outline{}
)

func (p Base) Kind() Kind   { return KindBase }
func (p Base) Mesh() uint32 { return p.MeshIndex }
func (p Base) Size() int    { return 4 }

func (p Base) Marshal() []byte {
	buf := make([]byte, p.Size())
	binary.LittleEndian.PutUint32(buf, p.MeshIndex)
	return buf
}

func (p Picking) Kind() Kind   { return KindPicking }
func (p Picking) Mesh() uint32 { return p.MeshIndex }
func (p Picking) Size() int    { return 32 }

func (p Picking) Marshal() []byte {
	buf := make([]byte, p.Size())
	binary.LittleEndian.PutUint32(buf, p.MeshIndex)
	for i, c := range p.IDColor {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(c))
	}
	return buf
}

func (p Outline) Kind() Kind   { return KindOutline }
func (p Outline) Mesh() uint32 { return p.MeshIndex }
func (p Outline) Size() int    { return 8 }

func (p Outline) Marshal() []byte {
	buf := make([]byte, p.Size())
	binary.LittleEndian.PutUint32(buf, p.MeshIndex)
	binary.LittleEndian.PutUint32(buf[4:], p.Outline)
	return buf
}
