package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
)

// Lens holds the perspective parameters of a camera.
type Lens struct {
	// FovY is the vertical field of view in radians.
	FovY float32
	// Aspect is width / height.
	Aspect float32
	Near   float32
	Far    float32
}

// DefaultLens is a 45 degree lens with a 0.1 to 1000 depth range.
func DefaultLens() Lens {
	return Lens{FovY: math32.Pi / 4, Aspect: 1, Near: 0.1, Far: 1000}
}

// Projection returns the lens projection into WebGPU clip space.
func (l Lens) Projection() common.Mat4 {
	return common.Perspective(l.FovY, l.Aspect, l.Near, l.Far)
}

// Matrices is one consistent set of camera transforms.
type Matrices struct {
	View       common.Mat4
	Projection common.Mat4
	// ProjView is Projection * View.
	ProjView common.Mat4
	// UnprojView is the inverse of ProjView, mapping normalized device coordinates to world space.
	UnprojView common.Mat4
}

// Camera combines a Lens with the eye placement of a CameraController into the per-frame
// camera record. The derived matrices are cached and recomputed whenever the lens changes or
// the controller's revision moves, so ProjView and UnprojView always come from the same state.
type Camera interface {
	Lens() Lens
	SetLens(l Lens)

	// Aspect returns the lens aspect ratio.
	Aspect() float32
	// SetAspect changes the lens aspect ratio, typically after a resize.
	SetAspect(aspect float32)

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Position returns the eye position, the origin when no controller is attached.
	Position() [3]float32

	// Matrices returns the current transforms.
	Matrices() Matrices

	// Uniform returns the camera record for a frame.
	//
	// Parameters:
	//   - lightCount: number of live lights in the light table
	//
	// Returns:
	//   - GPUCameraUniform: the record ready to be marshalled
	Uniform(lightCount uint32) GPUCameraUniform
}

type camera struct {
	mu   sync.Mutex
	up   [3]float32
	lens Lens
	ctrl CameraController

	cache    Matrices
	cacheRev uint64
	stale    bool
}

var _ Camera = &camera{}

// NewCamera creates a camera with DefaultLens. Without a controller it sits at the origin
// looking down -Z.
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &camera{
		up:    [3]float32{0, 1, 0},
		lens:  DefaultLens(),
		stale: true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *camera) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *camera) SetLens(l Lens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens = l
	c.stale = true
}

func (c *camera) Aspect() float32 {
	return c.Lens().Aspect
}

func (c *camera) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens.Aspect = aspect
	c.stale = true
}

func (c *camera) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl
}

func (c *camera) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl == nil {
		return [3]float32{}
	}
	return c.ctrl.Position()
}

func (c *camera) Matrices() Matrices {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, _ := c.matrices()
	return m
}

func (c *camera) Uniform(lightCount uint32) GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, eye := c.matrices()
	return GPUCameraUniform{
		ProjView:     m.ProjView,
		UnprojView:   m.UnprojView,
		ViewPosition: [4]float32{eye[0], eye[1], eye[2], 1},
		LightCount:   lightCount,
	}
}

// matrices returns the cached transforms, rebuilding them from one controller snapshot when
// stale. A singular ProjView keeps the previous inverse. Caller must hold the mutex.
func (c *camera) matrices() (Matrices, [3]float32) {
	eye, target := [3]float32{}, [3]float32{0, 0, -1}
	var rev uint64
	if c.ctrl != nil {
		var o Orbit
		o, rev = c.ctrl.Snapshot()
		eye, target = o.Eye(), o.Target
	}
	if !c.stale && rev == c.cacheRev {
		return c.cache, eye
	}

	m := Matrices{
		View:       common.LookAt(eye, target, c.up),
		Projection: c.lens.Projection(),
		UnprojView: c.cache.UnprojView,
	}
	m.ProjView = m.Projection.Mul(m.View)
	if inv, ok := m.ProjView.Inverse(); ok {
		m.UnprojView = inv
	}
	c.cache, c.cacheRev, c.stale = m, rev, false
	return m, eye
}
