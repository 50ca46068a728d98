package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/resource"
	"github.com/Carmen-Shannon/oxy-shade/engine/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Binding indices inside the materials group.
const (
	materialsBinding      = 0
	textureEntriesBinding = 1
	textureLayersBinding  = 2
	firstSamplerBinding   = 3
)

var (
	meshRecordSize     = uint64((&mesh.GPUMeshRecord{}).Size())
	materialRecordSize = uint64((&material.GPUMaterialRecord{}).Size())
	lightRecordSize    = uint64((&light.GPULightRecord{}).Size())
	textureEntrySize   = uint64((&texture.GPUTextureEntry{}).Size())
)

func samplerBinding(mode texture.SamplerMode) int {
	return firstSamplerBinding + int(mode)
}

// frame is the marshalled host copy of every table for one frame.
type frame struct {
	tables    resource.FrameTables
	instances []mesh.Instance
	handles   []uuid.UUID

	camera, meshes, materials, lights []byte

	meshCapacity, materialCapacity, lightCapacity int
}

// draw is one validated draw of a pass.
type draw struct {
	mesh    mesh.Mesh
	payload payload.Payload
	slot    int
}

// passPlan is the ordered list of draws submitted by one pass.
type passPlan struct {
	desc  pipeline.PassDescriptor
	draws []draw
}

// snapshot marshals every table. Each table is marshalled by its own pool task; the WaitGroup
// is the frame barrier, so all table bytes exist before any buffer write is queued.
func (s *scene) snapshot() *frame {
	f := &frame{
		instances:        s.instances.Snapshot(),
		handles:          s.instances.Handles(),
		meshCapacity:     s.instances.Capacity(),
		materialCapacity: s.materials.Capacity(),
		lightCapacity:    s.lights.Capacity(),
	}
	mats := s.materials.Snapshot()

	var active []light.Light
	for _, l := range s.lights.Snapshot() {
		if l.Enabled() {
			active = append(active, l)
		}
	}

	var wg sync.WaitGroup
	tasks := []func(){
		func() {
			f.tables.Camera = s.cam.Uniform(uint32(len(active)))
			f.camera = f.tables.Camera.Marshal()
		},
		func() {
			f.tables.Meshes = make([]mesh.GPUMeshRecord, len(f.instances))
			f.meshes = make([]byte, 0, len(f.instances)*int(meshRecordSize))
			for i, in := range f.instances {
				// unknown handles, including removed materials, resolve to the default at index 0
				matIdx, _ := s.materials.Index(in.Material())
				f.tables.Meshes[i] = in.Record(uint32(matIdx))
				f.meshes = append(f.meshes, f.tables.Meshes[i].Marshal()...)
			}
		},
		func() {
			f.tables.Materials = make([]material.GPUMaterialRecord, len(mats))
			f.materials = make([]byte, 0, len(mats)*int(materialRecordSize))
			for i, m := range mats {
				f.tables.Materials[i] = m.Record(s.textures.Index)
				f.materials = append(f.materials, f.tables.Materials[i].Marshal()...)
			}
		},
		func() {
			f.tables.Lights = make([]light.GPULightRecord, len(active))
			f.lights = make([]byte, 0, len(active)*int(lightRecordSize))
			for i, l := range active {
				f.tables.Lights[i] = l.Record()
				f.lights = append(f.lights, f.tables.Lights[i].Marshal()...)
			}
		},
	}

	for id, task := range tasks {
		wg.Add(1)
		do := task
		s.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				do()
				return nil, nil
			},
		})
	}
	wg.Wait()

	f.tables.TextureCount = s.textures.Len()
	return f
}

// plan builds and validates the draws of every visible pass. Draws that fail validation are
// logged and skipped; draws beyond the payload slot budget are dropped.
func (s *scene) plan(f *frame) []passPlan {
	var plans []passPlan
	for _, kind := range s.passOrder() {
		if s.hidden[kind] {
			continue
		}
		d, _ := pipeline.Describe(kind)
		pp := passPlan{desc: d}

		if d.FullscreenQuad {
			if err := resource.ValidateDraw(d.Payload, f.tables, nil); err != nil {
				s.log.Warn("draw rejected", zap.Stringer("pass", kind), zap.Error(err))
			} else {
				pp.draws = append(pp.draws, draw{mesh: s.gridMesh})
			}
			plans = append(plans, pp)
			continue
		}

		dropped := 0
		for i, in := range f.instances {
			if !in.Enabled() {
				continue
			}
			p, ok := s.drawPayload(d.Payload, uint32(i), in)
			if !ok {
				continue
			}
			if err := resource.ValidateDraw(d.Payload, f.tables, p); err != nil {
				s.log.Warn("draw rejected",
					zap.Stringer("pass", kind),
					zap.Int("mesh", i),
					zap.Error(err),
				)
				continue
			}
			if len(pp.draws) >= s.maxDraws {
				dropped++
				continue
			}
			pp.draws = append(pp.draws, draw{mesh: in.Geometry(), payload: p, slot: len(pp.draws)})
		}
		if dropped > 0 {
			s.log.Warn("draw budget exceeded", zap.Stringer("pass", kind), zap.Int("dropped", dropped), zap.Int("max", s.maxDraws))
		}
		plans = append(plans, pp)
	}
	return plans
}

// drawPayload builds the payload a pass carries for the instance at mesh index i.
// It reports false when the pass does not draw the instance.
func (s *scene) drawPayload(kind payload.Kind, i uint32, in mesh.Instance) (payload.Payload, bool) {
	switch kind {
	case payload.KindBase:
		return payload.Base{MeshIndex: i}, true
	case payload.KindOutline:
		outline := in.Outline()
		if outline == 0 {
			return nil, false
		}
		return payload.Outline{MeshIndex: i, Outline: outline}, true
	case payload.KindPicking:
		color, err := shading.EncodePickID(i)
		if err != nil {
			s.log.Warn("instance cannot be picked", zap.Uint32("mesh", i), zap.Error(err))
			return nil, false
		}
		return payload.Picking{MeshIndex: i, IDColor: color}, true
	default:
		return nil, false
	}
}

// groupOwner returns the first pipeline in submission order that binds g, and its group index.
// Bind groups are created against that pipeline's layout and reused by every pass binding g.
func (s *scene) groupOwner(g pipeline.Group) (pipeline.Pipeline, int, bool) {
	for _, kind := range s.passOrder() {
		d, _ := pipeline.Describe(kind)
		if idx, ok := d.GroupIndex(g); ok {
			return s.pipelines[kind], idx, true
		}
	}
	return nil, 0, false
}

// bindGroup grows the buffers of g's provider to the given sizes and (re)creates its bind group
// when it has none.
func (s *scene) bindGroup(g pipeline.Group, sizes map[int]uint64) error {
	provider, ok := s.providers[g]
	if !ok {
		return nil
	}
	for binding, size := range sizes {
		if provider.Buffer(binding) == nil {
			continue
		}
		if _, err := s.r.EnsureBufferCapacity(provider, binding, size); err != nil {
			return fmt.Errorf("%s: %w", g, err)
		}
	}
	if provider.BindGroup() != nil {
		return nil
	}
	p, idx, ok := s.groupOwner(g)
	if !ok {
		return nil
	}
	if err := s.r.InitBindGroup(provider, p, idx, sizes); err != nil {
		return fmt.Errorf("%s: %w", g, err)
	}
	return nil
}

// prepareBindings uploads pending textures and geometry and makes sure every provider the
// frame binds has a bind group large enough for this frame's tables.
func (s *scene) prepareBindings(f *frame, plans []passPlan) error {
	if mp, ok := s.providers[pipeline.GroupMaterials]; ok && s.textures.Revision() != s.textureRevision {
		if err := s.r.InitTextureView(mp, textureLayersBinding, s.textures.Staging()); err != nil {
			return fmt.Errorf("texture upload: %w", err)
		}
		mp.Invalidate()
		s.textureRevision = s.textures.Revision()
		s.log.Debug("textures uploaded", zap.Int("count", s.textures.Len()))
	}

	sizes := map[pipeline.Group]map[int]uint64{
		pipeline.GroupCamera: nil,
		pipeline.GroupMeshes: {0: uint64(f.meshCapacity) * meshRecordSize},
		pipeline.GroupMaterials: {
			materialsBinding:      uint64(f.materialCapacity) * materialRecordSize,
			textureEntriesBinding: uint64(max(f.tables.TextureCount, 1)) * textureEntrySize,
		},
		pipeline.GroupLights: {0: uint64(f.lightCapacity) * lightRecordSize},
		pipeline.GroupGrid:   nil,
	}
	var errs []error
	for g, sz := range sizes {
		if err := s.bindGroup(g, sz); err != nil {
			errs = append(errs, err)
		}
	}

	for kind, pp := range s.payloads {
		if pp.BindGroup() != nil {
			continue
		}
		d, _ := pipeline.Describe(kind)
		idx, _ := d.GroupIndex(pipeline.GroupPayload)
		if err := s.r.InitBindGroup(pp, s.pipelines[kind], idx, nil); err != nil {
			errs = append(errs, fmt.Errorf("%s payload: %w", kind, err))
		}
	}

	uploaded := make(map[mesh.Mesh]bool)
	for _, plan := range plans {
		for _, d := range plan.draws {
			m := d.mesh
			if uploaded[m] || m.Provider().VertexBuffer() != nil {
				continue
			}
			uploaded[m] = true
			if err := s.r.InitMeshBuffers(m.Provider(), m.VertexData(), m.IndexData(), m.IndexCount(), m.VertexCount()); err != nil {
				errs = append(errs, fmt.Errorf("mesh %s: %w", m.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// writes queues the table bytes and every draw's payload slot.
func (s *scene) writes(f *frame, plans []passPlan) []bind_group_provider.BufferWrite {
	writes := s.writePool[:0]
	add := func(g pipeline.Group, binding int, data []byte) {
		provider, ok := s.providers[g]
		if !ok || len(data) == 0 {
			return
		}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: provider, Binding: binding, Data: data})
	}

	add(pipeline.GroupCamera, 0, f.camera)
	add(pipeline.GroupMeshes, 0, f.meshes)
	add(pipeline.GroupMaterials, materialsBinding, f.materials)
	add(pipeline.GroupMaterials, textureEntriesBinding, s.textures.MarshalEntries())
	add(pipeline.GroupLights, 0, f.lights)
	add(pipeline.GroupGrid, 0, s.gridParams.Marshal())

	for _, plan := range plans {
		pp, ok := s.payloads[plan.desc.Kind]
		if !ok {
			continue
		}
		for _, d := range plan.draws {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: pp,
				Binding:  0,
				Offset:   uint64(d.slot) * payload.SlotStride,
				Data:     d.payload.Marshal(),
			})
		}
	}
	s.writePool = writes
	return writes
}

// bindings returns the providers a pass binds, in group order, with the payload slot of one draw.
func (s *scene) bindings(d pipeline.PassDescriptor, slot int) []renderer.Binding {
	out := s.bindingPool[:0]
	for _, g := range d.Groups {
		if g == pipeline.GroupPayload {
			out = append(out, renderer.Binding{Provider: s.payloads[d.Kind], Slot: slot})
			continue
		}
		out = append(out, renderer.Binding{Provider: s.providers[g]})
	}
	s.bindingPool = out
	return out
}

func (s *scene) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.snapshot()
	if err := resource.ValidateFrame(f.tables); err != nil {
		s.log.Error("frame rejected", zap.String("scene", s.name), zap.Error(err))
		return fmt.Errorf("scene %q: %w", s.name, err)
	}

	plans := s.plan(f)
	if err := s.prepareBindings(f, plans); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	if err := s.r.WriteBuffers(s.writes(f, plans)); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}

	if err := s.r.BeginFrame(); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	for _, plan := range plans {
		if plan.desc.Target == pipeline.TargetPicking {
			if err := s.r.BeginPickingPass(); err != nil {
				s.log.Warn("picking pass skipped", zap.Error(err))
				break
			}
		}
		for _, d := range plan.draws {
			if err := s.r.DrawCall(plan.desc.Key(), d.mesh.Provider(), s.bindings(plan.desc, d.slot)); err != nil {
				s.log.Warn("draw failed", zap.Stringer("pass", plan.desc.Kind), zap.Int("slot", d.slot), zap.Error(err))
			}
		}
	}
	s.r.EndFrame()
	s.r.Present()

	s.lastFrame = f.handles
	return nil
}
