package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
)

// Orbit places an eye on a sphere around a target point.
type Orbit struct {
	Target [3]float32
	// Radius is the distance from the eye to the target.
	Radius float32
	// Azimuth is the angle around +Y in radians, zero on the +Z axis.
	Azimuth float32
	// Elevation is the angle above the XZ plane in radians.
	Elevation float32
}

// Eye returns the eye position.
func (o Orbit) Eye() [3]float32 {
	sinE, cosE := math32.Sincos(o.Elevation)
	sinA, cosA := math32.Sincos(o.Azimuth)
	return common.Add3(o.Target, common.Scale3([3]float32{cosE * sinA, sinE, cosE * cosA}, o.Radius))
}

// axes returns the right, up and forward directions of an eye looking at the target with +Y up.
func (o Orbit) axes() (right, up, forward [3]float32) {
	sinE, cosE := math32.Sincos(o.Elevation)
	sinA, cosA := math32.Sincos(o.Azimuth)
	forward = [3]float32{-cosE * sinA, -sinE, -cosE * cosA}
	right = [3]float32{cosA, 0, -sinA}
	up = common.Cross3(right, forward)
	return right, up, forward
}

// Limits bounds the radius and elevation of an orbit.
type Limits struct {
	MinRadius    float32
	MaxRadius    float32
	MinElevation float32
	MaxElevation float32
}

func (l Limits) clamp(o Orbit) Orbit {
	o.Radius = common.Clamp(o.Radius, l.MinRadius, l.MaxRadius)
	o.Elevation = common.Clamp(o.Elevation, l.MinElevation, l.MaxElevation)
	return o
}

// CameraController moves a camera eye around a target. Every change bumps a revision that
// cameras compare against to know their matrices are stale.
type CameraController interface {
	// Position returns the eye position.
	Position() [3]float32

	// Target returns the look-at point.
	Target() [3]float32

	// State returns the current orbit.
	State() Orbit

	// SetState replaces the orbit, clamped to the limits.
	SetState(o Orbit)

	// Snapshot returns the orbit together with the revision it belongs to.
	Snapshot() (Orbit, uint64)

	// Orbit rotates the eye around the target. Elevation stays within the limits.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// Pan moves the target, and the eye with it, along the view axes. Distances are multiplied
	// by the pan speed.
	Pan(right, up, forward float32)

	// Zoom moves the eye toward the target for positive delta, scaled by the zoom speed.
	Zoom(delta float32)

	// OrbitSpeed is the angle one keyboard step orbits by, in radians.
	OrbitSpeed() float32

	// MouseSensitivity is the angle one pixel of mouse drag orbits by, in radians.
	MouseSensitivity() float32

	// Revision increases on every change.
	Revision() uint64
}

type cameraController struct {
	mu       sync.Mutex
	orbit    Orbit
	limits   Limits
	revision uint64

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ CameraController = &cameraController{}

// NewCameraController creates a controller 8 units from the origin, 30 degrees above the
// horizon. Elevation is limited to just short of the poles, where the view would flip.
func NewCameraController(options ...CameraControllerOption) CameraController {
	const pole = math32.Pi/2 - 0.05
	cc := &cameraController{
		orbit:  Orbit{Radius: 8, Elevation: math32.Pi / 6},
		limits: Limits{MinRadius: 0.5, MaxRadius: 500, MinElevation: -pole, MaxElevation: pole},

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         0.1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.orbit = cc.limits.clamp(cc.orbit)
	return cc
}

// update applies fn to the orbit under the lock and clamps the result.
func (cc *cameraController) update(fn func(o *Orbit)) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	fn(&cc.orbit)
	cc.orbit = cc.limits.clamp(cc.orbit)
	cc.revision++
}

func (cc *cameraController) Snapshot() (Orbit, uint64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbit, cc.revision
}

func (cc *cameraController) State() Orbit {
	o, _ := cc.Snapshot()
	return o
}

func (cc *cameraController) Position() [3]float32 {
	return cc.State().Eye()
}

func (cc *cameraController) Target() [3]float32 {
	return cc.State().Target
}

func (cc *cameraController) Revision() uint64 {
	_, rev := cc.Snapshot()
	return rev
}

func (cc *cameraController) SetState(o Orbit) {
	cc.update(func(cur *Orbit) { *cur = o })
}

func (cc *cameraController) Orbit(dAzimuth, dElevation float32) {
	cc.update(func(o *Orbit) {
		o.Azimuth += dAzimuth
		o.Elevation += dElevation
	})
}

func (cc *cameraController) Pan(right, up, forward float32) {
	cc.update(func(o *Orbit) {
		r, u, f := o.axes()
		move := common.Add3(common.Add3(common.Scale3(r, right), common.Scale3(u, up)), common.Scale3(f, forward))
		o.Target = common.Add3(o.Target, common.Scale3(move, cc.panSpeed))
	})
}

func (cc *cameraController) Zoom(delta float32) {
	cc.update(func(o *Orbit) {
		o.Radius -= delta * cc.zoomSpeed
	})
}

func (cc *cameraController) OrbitSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbitSpeed
}

func (cc *cameraController) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}
