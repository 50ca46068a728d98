package pipeline

import (
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// MergeBindGroupLayouts merges the bind group layout descriptors from a vertex and fragment shader
// into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, max(len(vertexLayouts), len(fragmentLayouts)))

	for g, desc := range vertexLayouts {
		merged[g] = desc
	}
	for g, fDesc := range fragmentLayouts {
		vDesc, ok := merged[g]
		if !ok {
			merged[g] = fDesc
			continue
		}

		byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry, len(vDesc.Entries)+len(fDesc.Entries))
		for _, e := range vDesc.Entries {
			byBinding[e.Binding] = e
		}
		for _, e := range fDesc.Entries {
			if existing, ok := byBinding[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				// a dynamic declaration in either stage makes the merged binding dynamic
				existing.Buffer.HasDynamicOffset = existing.Buffer.HasDynamicOffset || e.Buffer.HasDynamicOffset
				byBinding[e.Binding] = existing
				continue
			}
			byBinding[e.Binding] = e
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			entries = append(entries, e)
		}
		slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})

		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   vDesc.Label,
			Entries: entries,
		}
	}

	return merged
}

// GroupCount returns one past the highest group index in the merged layouts, the number of
// bind group layouts the pipeline layout needs.
func GroupCount(layouts map[int]wgpu.BindGroupLayoutDescriptor) int {
	n := 0
	for g := range layouts {
		n = max(n, g+1)
	}
	return n
}
