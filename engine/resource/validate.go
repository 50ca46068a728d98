package resource

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
)

// CameraTolerance is the largest |unproj_view * proj_view - I| entry accepted by ValidateFrame.
const CameraTolerance float32 = 1e-3

// FrameTables is the host copy of everything bound for one frame.
type FrameTables struct {
	Camera       camera.GPUCameraUniform
	Meshes       []mesh.GPUMeshRecord
	Materials    []material.GPUMaterialRecord
	TextureCount int
	Lights       []light.GPULightRecord
}

// ValidateFrame checks the cross-table invariants of a frame before any draw is issued.
// Every violation is reported; the result is an errors.Join of BindingErrors.
//
// Parameters:
//   - t: the frame's tables
//
// Returns:
//   - error: nil if every index stored in a table points inside its target table
func ValidateFrame(t FrameTables) error {
	var errs []error

	if int(t.Camera.LightCount) > len(t.Lights) {
		errs = append(errs, outOfRange("camera", "light_count", int(t.Camera.LightCount), len(t.Lights)))
	}
	if dev := common.InverseError(t.Camera.ProjView, t.Camera.UnprojView); !(dev <= CameraTolerance) {
		errs = append(errs, fmt.Errorf("camera.unproj_view deviates from the inverse by %g: %w", dev,
			&BindingError{Kind: ErrInconsistentInvariant, Table: "camera", Field: "unproj_view"}))
	}
	if t.TextureCount < 1 {
		errs = append(errs, &BindingError{Kind: ErrMissingResource, Table: "textures", Field: "default", Len: t.TextureCount})
	}

	for i := range t.Meshes {
		if err := CheckIndex("meshes", "material_id", int(t.Meshes[i].MaterialID), len(t.Materials)); err != nil {
			errs = append(errs, fmt.Errorf("mesh %d: %w", i, err))
		}
	}
	for i := range t.Materials {
		for c, idx := range t.Materials[i].TextureIndices() {
			if err := CheckIndex("materials", material.Channel(c).String(), int(idx), t.TextureCount); err != nil {
				errs = append(errs, fmt.Errorf("material %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateDraw checks a single draw's payload against the pass and the frame's tables.
//
// Parameters:
//   - want: the payload kind the pass declares
//   - t: the frame's tables
//   - p: the draw's payload, nil for passes that declare payload.KindNone
//
// Returns:
//   - error: a BindingError describing the first violation, or nil
func ValidateDraw(want payload.Kind, t FrameTables, p payload.Payload) error {
	if want == payload.KindNone {
		if p != nil {
			return &BindingError{Kind: ErrInconsistentInvariant, Table: "payload", Field: "kind", Index: int(p.Kind())}
		}
		return nil
	}
	if p == nil {
		return &BindingError{Kind: ErrMissingResource, Table: "payload", Field: want.String()}
	}
	if p.Kind() != want {
		return fmt.Errorf("pass expects %s payload, got %s: %w", want, p.Kind(),
			&BindingError{Kind: ErrInconsistentInvariant, Table: "payload", Field: "kind", Index: int(p.Kind())})
	}
	if p.Size() > payload.MaxSize {
		return &BindingError{Kind: ErrInconsistentInvariant, Table: "payload", Field: "size", Index: p.Size(), Len: payload.MaxSize}
	}
	return CheckIndex("meshes", "mesh_index", int(p.Mesh()), len(t.Meshes))
}
