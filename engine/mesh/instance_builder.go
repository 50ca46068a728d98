package mesh

import "github.com/google/uuid"

// InstanceBuilderOption is a functional option for configuring an Instance via NewInstance.
type InstanceBuilderOption func(*instance)

// WithPosition sets the initial world position.
//
// Parameters:
//   - pos: world position
//
// Returns:
//   - InstanceBuilderOption: a function that applies the position option
func WithPosition(pos [3]float32) InstanceBuilderOption {
	return func(in *instance) {
		in.position = pos
	}
}

// WithRotation sets the initial Euler rotation in radians.
//
// Parameters:
//   - rot: rotation around x, y and z
//
// Returns:
//   - InstanceBuilderOption: a function that applies the rotation option
func WithRotation(rot [3]float32) InstanceBuilderOption {
	return func(in *instance) {
		in.rotation = rot
	}
}

// WithScale sets the initial per-axis scale.
//
// Parameters:
//   - scale: scale factors
//
// Returns:
//   - InstanceBuilderOption: a function that applies the scale option
func WithScale(scale [3]float32) InstanceBuilderOption {
	return func(in *instance) {
		in.scale = scale
	}
}

// WithMaterial sets the material handle.
//
// Parameters:
//   - material: the material handle
//
// Returns:
//   - InstanceBuilderOption: a function that applies the material option
func WithMaterial(material uuid.UUID) InstanceBuilderOption {
	return func(in *instance) {
		in.material = material
	}
}

// WithID overrides the generated handle. Used when restoring a known instance.
func WithID(id uuid.UUID) InstanceBuilderOption {
	return func(in *instance) {
		in.id = id
	}
}
