package mesh

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/google/uuid"
)

type instance struct {
	mu *sync.Mutex

	id       uuid.UUID
	enabled  bool
	geometry Mesh
	material uuid.UUID

	position [3]float32
	rotation [3]float32
	scale    [3]float32

	model  [16]float32
	normal [16]float32

	outline uint32
}

// Instance places a Mesh in the world with its own transform and material.
// Each enabled Instance occupies one record of the mesh table.
//
// The model and normal matrices are derived data: every transform setter recomputes both
// under the instance lock, so a Record never carries a normal matrix that belongs to an
// older transform.
type Instance interface {
	// ID returns the handle identifying this instance in the mesh table.
	//
	// Returns:
	//   - uuid.UUID: the instance handle
	ID() uuid.UUID

	// Geometry returns the Mesh drawn for this instance.
	//
	// Returns:
	//   - Mesh: the geometry
	Geometry() Mesh

	// Material returns the material handle. uuid.Nil selects the default material.
	//
	// Returns:
	//   - uuid.UUID: the material handle
	Material() uuid.UUID

	// SetMaterial assigns a material handle.
	//
	// Parameters:
	//   - material: the material handle, or uuid.Nil for the default material
	SetMaterial(material uuid.UUID)

	// Enabled reports whether the instance is drawn.
	//
	// Returns:
	//   - bool: true if drawn
	Enabled() bool

	// SetEnabled toggles drawing of the instance.
	SetEnabled(enabled bool)

	// Transform returns position, Euler rotation (radians) and scale.
	//
	// Returns:
	//   - pos, rot, scale: the current transform components
	Transform() (pos, rot, scale [3]float32)

	// SetTransform replaces the full transform and recomputes the model and normal matrices.
	//
	// Parameters:
	//   - pos: world position
	//   - rot: Euler rotation in radians (applied Y, X, Z)
	//   - scale: per-axis scale
	SetTransform(pos, rot, scale [3]float32)

	// SetPosition replaces the position and recomputes derived matrices.
	SetPosition(pos [3]float32)

	// SetRotation replaces the rotation and recomputes derived matrices.
	SetRotation(rot [3]float32)

	// SetScale replaces the scale and recomputes derived matrices.
	SetScale(scale [3]float32)

	// ModelMatrix returns the current model-to-world matrix.
	//
	// Returns:
	//   - [16]float32: column-major model matrix
	ModelMatrix() [16]float32

	// NormalMatrix returns the current normal matrix.
	//
	// Returns:
	//   - [16]float32: column-major normal matrix
	NormalMatrix() [16]float32

	// Outline returns the packed selection outline, zero when the instance is not outlined.
	//
	// Returns:
	//   - uint32: r<<24 | g<<16 | b<<8 | width
	Outline() uint32

	// SetOutline sets the packed selection outline. Zero disables the outline.
	SetOutline(outline uint32)

	// Record builds the mesh table entry for this instance.
	//
	// Parameters:
	//   - materialIndex: the dense material table index resolved from Material()
	//
	// Returns:
	//   - GPUMeshRecord: the table entry
	Record(materialIndex uint32) GPUMeshRecord
}

var _ Instance = &instance{}

// NewInstance creates an enabled instance at the origin with unit scale.
//
// Parameters:
//   - geometry: the mesh to draw
//   - options: functional options for transform and material
//
// Returns:
//   - Instance: the new instance
func NewInstance(geometry Mesh, options ...InstanceBuilderOption) Instance {
	in := &instance{
		mu:       &sync.Mutex{},
		id:       uuid.New(),
		enabled:  true,
		geometry: geometry,
		scale:    [3]float32{1, 1, 1},
	}
	for _, opt := range options {
		opt(in)
	}
	in.updateMatrices()
	return in
}

func (in *instance) ID() uuid.UUID {
	return in.id
}

func (in *instance) Geometry() Mesh {
	return in.geometry
}

func (in *instance) Material() uuid.UUID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.material
}

func (in *instance) SetMaterial(material uuid.UUID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.material = material
}

func (in *instance) Enabled() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.enabled
}

func (in *instance) SetEnabled(enabled bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.enabled = enabled
}

func (in *instance) Transform() (pos, rot, scale [3]float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.position, in.rotation, in.scale
}

func (in *instance) SetTransform(pos, rot, scale [3]float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.position, in.rotation, in.scale = pos, rot, scale
	in.updateMatrices()
}

func (in *instance) SetPosition(pos [3]float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.position = pos
	in.updateMatrices()
}

func (in *instance) SetRotation(rot [3]float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.rotation = rot
	in.updateMatrices()
}

func (in *instance) SetScale(scale [3]float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scale = scale
	in.updateMatrices()
}

func (in *instance) ModelMatrix() [16]float32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.model
}

func (in *instance) NormalMatrix() [16]float32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.normal
}

func (in *instance) Outline() uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.outline
}

func (in *instance) SetOutline(outline uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.outline = outline
}

func (in *instance) Record(materialIndex uint32) GPUMeshRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	return GPUMeshRecord{
		MaterialID: materialIndex,
		Model:      in.model,
		Normal:     in.normal,
		Scale:      in.scale,
	}
}

// updateMatrices rebuilds the model matrix and its normal matrix. A degenerate scale has no
// inverse-transpose, so the normal matrix falls back to identity. Caller must hold the mutex.
func (in *instance) updateMatrices() {
	model := common.TRS(in.position, in.rotation, in.scale)
	in.model = model
	in.normal, _ = model.NormalMatrix()
}
