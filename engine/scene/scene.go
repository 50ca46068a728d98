package scene

import (
	"fmt"
	"image"
	"io/fs"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/logger"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/payload"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/resource"
	"github.com/Carmen-Shannon/oxy-shade/engine/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scene owns the resource tables of one world (mesh instances, materials, textures and lights)
// together with the camera, and turns them into frames: every frame the tables are marshalled,
// validated as a whole, and each pass's draws are validated one by one before any of them reaches
// the Renderer. Passes are submitted in the order PBR, Outline, Grid, Picking.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// AddInstance places a mesh instance in the mesh table. Adding an instance that is already
	// present leaves its index unchanged.
	//
	// Parameters:
	//   - in: the instance to add
	//
	// Returns:
	//   - int: the instance's mesh table index
	AddInstance(in mesh.Instance) int

	// RemoveInstance removes an instance from the mesh table. The last instance moves into the
	// freed index so the table stays dense.
	//
	// Parameters:
	//   - id: the instance handle
	//
	// Returns:
	//   - uuid.UUID: the handle of the instance that moved into the freed index, uuid.Nil if none moved
	//   - bool: false if the instance was not in the scene
	RemoveInstance(id uuid.UUID) (uuid.UUID, bool)

	// Instance looks up an instance by handle.
	//
	// Parameters:
	//   - id: the instance handle
	//
	// Returns:
	//   - mesh.Instance: the instance, nil if not found
	Instance(id uuid.UUID) mesh.Instance

	// Instances returns every instance in mesh table order.
	Instances() []mesh.Instance

	// AddMaterial adds a material to the material table. Index 0 always holds the default material.
	//
	// Parameters:
	//   - m: the material to add
	//
	// Returns:
	//   - int: the material's table index
	AddMaterial(m material.Material) int

	// RemoveMaterial removes a material. Instances that still reference it fall back to the
	// default material. The default material itself cannot be removed.
	//
	// Parameters:
	//   - id: the material handle
	//
	// Returns:
	//   - bool: false if the material was not in the scene or is the default
	RemoveMaterial(id uuid.UUID) bool

	// AddLight adds a point light to the light table.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light from the light table.
	//
	// Parameters:
	//   - id: the light handle
	//
	// Returns:
	//   - bool: false if the light was not in the scene
	RemoveLight(id uuid.UUID) bool

	// Lights returns every light in table order.
	Lights() []light.Light

	// AddTexture resamples an image into a new layer of the texture table.
	//
	// Parameters:
	//   - img: the source image
	//   - mode: the sampler the shaders read it with
	//
	// Returns:
	//   - uuid.UUID: the texture handle to assign to material channels
	//   - error: an error if the texture table is full
	AddTexture(img image.Image, mode texture.SamplerMode) (uuid.UUID, error)

	// Select outlines the instance with the configured highlight and clears the previous
	// selection. uuid.Nil clears the selection.
	//
	// Parameters:
	//   - id: the instance to select
	Select(id uuid.UUID)

	// Selected returns the selected instance handle, uuid.Nil if nothing is selected.
	Selected() uuid.UUID

	// SetPassVisible shows or hides a pass that the scene was built with. Hidden passes keep their
	// pipeline and bindings but submit no draws. The picking pass cannot be hidden.
	//
	// Parameters:
	//   - kind: the pass to toggle
	//   - visible: whether the pass draws
	//
	// Returns:
	//   - bool: false if the pass was not built or is the picking pass
	SetPassVisible(kind pipeline.PassKind, visible bool) bool

	// PassVisible reports whether a pass was built and currently draws.
	PassVisible(kind pipeline.PassKind) bool

	// Render marshals and validates the tables, then encodes, submits and presents one frame.
	// A frame whose tables fail validation is abandoned before any pass begins.
	//
	// Returns:
	//   - error: an error if the frame was abandoned
	Render() error

	// Pick resolves the instance drawn at a surface pixel in the last submitted frame.
	//
	// Parameters:
	//   - x, y: the pixel, origin top-left
	//
	// Returns:
	//   - mesh.Instance: the instance under the pixel, nil for background
	//   - error: an error if picking is disabled or the readback fails
	Pick(x, y int) (mesh.Instance, error)

	// ReloadShaders rebuilds the pipelines of every shader the watcher reloaded since the last call.
	// Must be called from the render thread.
	//
	// Returns:
	//   - int: the number of pipelines rebuilt
	ReloadShaders() int

	// Release stops the worker pool and the shader watcher and frees every GPU resource the scene created.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	log    *zap.Logger
	name   string
	active bool

	cam camera.Camera
	r   renderer.Renderer

	instances *resource.Table[mesh.Instance]
	materials *resource.Table[material.Material]
	lights    *resource.Table[light.Light]
	textures  *texture.Set
	selected  uuid.UUID

	// texture revision last uploaded, ^0 before the first upload
	textureRevision uint64

	enabled      map[pipeline.PassKind]bool
	hidden       map[pipeline.PassKind]bool
	gridParams   shading.GridParams
	gridMesh     mesh.Mesh
	outlineColor [3]float32
	outlineWidth float32
	maxDraws     int

	shaderFS        fs.FS
	shaderDir       string
	hotReload       bool
	validateShaders bool
	watcher         shader.Watcher

	pipelines map[pipeline.PassKind]pipeline.Pipeline
	providers map[pipeline.Group]bind_group_provider.BindGroupProvider
	payloads  map[pipeline.PassKind]bind_group_provider.BindGroupProvider

	// handles of the instances drawn by the last submitted frame, by mesh index
	lastFrame []uuid.UUID

	// Pre-allocated slices reused each frame to avoid per-frame allocations.
	writePool   []bind_group_provider.BufferWrite
	bindingPool []renderer.Binding

	// pool marshals the tables in parallel; workers persist across frames.
	pool    worker.DynamicWorkerPool
	workers int
}

var _ Scene = &scene{}

// NewScene creates a Scene drawing through r from the point of view of cam. It loads the WGSL
// source of every enabled pass, checks each shader's declared groups against its pass,
// registers the pipelines with r and creates the providers of every bound table.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - r: the renderer to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
//   - error: an error if a shader fails to load, validate or match its pass
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) (Scene, error) {
	if cam == nil {
		return nil, fmt.Errorf("scene %q: nil camera", name)
	}
	if r == nil {
		return nil, fmt.Errorf("scene %q: nil renderer", name)
	}

	s := &scene{
		mu:              &sync.RWMutex{},
		log:             logger.Named("scene"),
		name:            name,
		cam:             cam,
		r:               r,
		instances:       resource.NewTable[mesh.Instance]("meshes"),
		materials:       resource.NewTable[material.Material]("materials"),
		lights:          resource.NewTable[light.Light]("lights"),
		textureRevision: ^uint64(0),
		enabled: map[pipeline.PassKind]bool{
			pipeline.PassPBR:     true,
			pipeline.PassOutline: true,
			pipeline.PassGrid:    true,
			pipeline.PassPicking: true,
		},
		hidden:          make(map[pipeline.PassKind]bool),
		gridParams:      shading.DefaultGridParams(),
		gridMesh:        mesh.FullscreenQuad(),
		outlineColor:    [3]float32{1, 0.6, 0.1},
		outlineWidth:    0.05,
		maxDraws:        1024,
		shaderFS:        shader.Builtin(),
		validateShaders: true,
		pipelines:       make(map[pipeline.PassKind]pipeline.Pipeline),
		providers:       make(map[pipeline.Group]bind_group_provider.BindGroupProvider),
		payloads:        make(map[pipeline.PassKind]bind_group_provider.BindGroupProvider),
		workers:         min(max(runtime.NumCPU()-1, 1), 4),
	}

	for _, option := range options {
		option(s)
	}

	if s.textures == nil {
		s.textures = texture.NewSet(texture.DefaultLayerSize, 0)
	}
	s.materials.Insert(uuid.Nil, material.NewMaterial(material.WithName("default")))

	// one task per table, so the queue never holds more than a frame's worth
	s.pool = worker.NewDynamicWorkerPool(s.workers, 8, 1*time.Second)

	if err := s.loadPipelines(); err != nil {
		s.pool.Stop()
		return nil, err
	}
	s.createProviders()
	if err := s.initSamplers(); err != nil {
		s.Release()
		return nil, err
	}

	s.log.Info("scene created",
		zap.String("scene", name),
		zap.Int("pipelines", len(s.pipelines)),
		zap.Int("workers", s.workers),
		zap.Int("max_draws", s.maxDraws),
	)
	return s, nil
}

// createProviders creates one provider per bound table and one dynamic payload provider per
// pass that carries a payload. Payload providers are per pass because their layouts differ
// in minimum binding size.
func (s *scene) createProviders() {
	for kind, p := range s.pipelines {
		d, _ := pipeline.Describe(kind)
		for _, g := range d.Groups {
			if g == pipeline.GroupPayload {
				continue
			}
			if _, ok := s.providers[g]; !ok {
				s.providers[g] = bind_group_provider.NewBindGroupProvider(g.String())
			}
		}
		if d.Payload != payload.KindNone {
			pp := bind_group_provider.NewBindGroupProvider(p.PipelineKey()+"_payload",
				bind_group_provider.WithDynamicSlots(payload.SlotStride, s.maxDraws))
			s.payloads[kind] = pp
		}
	}
}

// initSamplers creates the sampler of every SamplerMode on the materials provider.
func (s *scene) initSamplers() error {
	mp, ok := s.providers[pipeline.GroupMaterials]
	if !ok {
		return nil
	}
	for mode := texture.SamplerLinearRepeat; mode < texture.SamplerModeCount; mode++ {
		if err := s.r.InitSampler(mp, samplerBinding(mode), mode.Staging()); err != nil {
			return fmt.Errorf("scene %q: sampler %s: %w", s.name, mode, err)
		}
	}
	return nil
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Renderer() renderer.Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}

func (s *scene) AddInstance(in mesh.Instance) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, grew := s.instances.Insert(in.ID(), in)
	if grew {
		s.log.Debug("mesh table grown", zap.Int("capacity", s.instances.Capacity()))
	}
	return idx
}

func (s *scene) RemoveInstance(id uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved, ok := s.instances.Remove(id)
	if !ok {
		return uuid.Nil, false
	}
	if s.selected == id {
		s.selected = uuid.Nil
	}
	if moved != uuid.Nil {
		s.log.Debug("mesh index reassigned", zap.Stringer("removed", id), zap.Stringer("moved", moved))
	}
	return moved, true
}

func (s *scene) Instance(id uuid.UUID) mesh.Instance {
	in, _ := s.instances.Get(id)
	return in
}

func (s *scene) Instances() []mesh.Instance {
	return s.instances.Snapshot()
}

func (s *scene) AddMaterial(m material.Material) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, _ := s.materials.Insert(m.ID(), m)
	return idx
}

func (s *scene) RemoveMaterial(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.materials.Remove(id)
	return ok
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights.Insert(l.ID(), l)
}

func (s *scene) RemoveLight(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lights.Remove(id)
	return ok
}

func (s *scene) Lights() []light.Light {
	return s.lights.Snapshot()
}

func (s *scene) AddTexture(img image.Image, mode texture.SamplerMode) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.textures.Add(img, mode)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scene %q: %w", s.name, err)
	}
	return id, nil
}

func (s *scene) Select(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.instances.Get(s.selected); ok {
		prev.SetOutline(0)
	}
	s.selected = uuid.Nil
	if id == uuid.Nil {
		return
	}
	in, ok := s.instances.Get(id)
	if !ok {
		return
	}
	in.SetOutline(payload.EncodeOutline(s.outlineColor, s.outlineWidth))
	s.selected = id
}

func (s *scene) Selected() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *scene) SetPassVisible(kind pipeline.PassKind, visible bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pipelines[kind]; !ok || kind == pipeline.PassPicking {
		return false
	}
	s.hidden[kind] = !visible
	return true
}

func (s *scene) PassVisible(kind pipeline.PassKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.pipelines[kind]
	return ok && !s.hidden[kind]
}

func (s *scene) Pick(x, y int) (mesh.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.enabled[pipeline.PassPicking] {
		return nil, renderer.ErrPickingDisabled
	}
	id, hit, err := s.r.ReadPickingPixel(x, y)
	if err != nil {
		return nil, fmt.Errorf("scene %q: pick (%d, %d): %w", s.name, x, y, err)
	}
	if !hit {
		return nil, nil
	}
	if err := resource.CheckIndex("picking", "id", int(id), len(s.lastFrame)); err != nil {
		return nil, fmt.Errorf("scene %q: pick (%d, %d): %w", s.name, x, y, err)
	}
	// nil when the instance was removed after the frame was drawn
	in, _ := s.instances.Get(s.lastFrame[id])
	return in, nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.log.Warn("shader watcher close failed", zap.Error(err))
		}
		s.watcher = nil
	}
	if s.pool != nil {
		s.pool.Stop()
	}

	for _, p := range s.providers {
		p.Release()
	}
	for _, p := range s.payloads {
		p.Release()
	}
	released := make(map[mesh.Mesh]bool)
	for _, in := range s.instances.Snapshot() {
		if m := in.Geometry(); !released[m] {
			m.Provider().Release()
			released[m] = true
		}
	}
	s.gridMesh.Provider().Release()
}
