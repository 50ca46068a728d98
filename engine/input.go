package engine

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
)

// passToggler is the part of a scene the keyboard shortcuts drive.
type passToggler interface {
	SetPassVisible(kind pipeline.PassKind, visible bool) bool
	PassVisible(kind pipeline.PassKind) bool
}

// orbitInput collects window events on the window thread and applies them on the tick thread.
//
// W/S and A/D orbit while held, middle-mouse drag orbits, scroll zooms, G and O toggle the
// grid and outline passes, R resets the camera.
type orbitInput struct {
	mu *sync.Mutex

	held     map[uint32]bool
	pressed  []uint32
	dragging bool
	lastX    int32
	lastY    int32

	dragX float32 // pixels accumulated since the last apply
	dragY float32
	zoom  float32

	// home is the orbit the reset key returns to, recorded on the first apply.
	home *camera.Orbit
}

func newOrbitInput() *orbitInput {
	return &orbitInput{
		mu:   &sync.Mutex{},
		held: make(map[uint32]bool),
	}
}

// key records a key transition. Auto-repeat events of a held key are not queued as presses.
func (in *orbitInput) key(code uint32, down bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !down {
		delete(in.held, code)
		return
	}
	if !in.held[code] {
		in.pressed = append(in.pressed, code)
	}
	in.held[code] = true
}

// drag starts or ends a middle-button orbit drag at a cursor position.
func (in *orbitInput) drag(down bool, x, y int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.dragging = down
	in.lastX, in.lastY = x, y
}

func (in *orbitInput) cursor(x, y int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.dragging {
		return
	}
	in.dragX += float32(x - in.lastX)
	in.dragY += float32(y - in.lastY)
	in.lastX, in.lastY = x, y
}

func (in *orbitInput) scroll(delta float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.zoom += delta
}

// apply moves the camera by the input gathered since the last call and runs queued shortcuts.
//
// Parameters:
//   - ctrl: the orbit controller to move
//   - passes: the scene whose passes the shortcuts toggle, may be nil
func (in *orbitInput) apply(ctrl camera.CameraController, passes passToggler) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.home == nil {
		home := ctrl.State()
		in.home = &home
	}

	step := ctrl.OrbitSpeed()
	dAz := in.dragX * ctrl.MouseSensitivity()
	dEl := -in.dragY * ctrl.MouseSensitivity()
	if in.held[common.KeyA] {
		dAz -= step
	}
	if in.held[common.KeyD] {
		dAz += step
	}
	if in.held[common.KeyW] {
		dEl += step
	}
	if in.held[common.KeyS] {
		dEl -= step
	}
	if dAz != 0 || dEl != 0 {
		ctrl.Orbit(dAz, dEl)
	}
	if in.zoom != 0 {
		ctrl.Zoom(in.zoom)
	}
	in.dragX, in.dragY, in.zoom = 0, 0, 0

	for _, key := range in.pressed {
		switch key {
		case common.KeyR:
			ctrl.SetState(*in.home)
		case common.KeyG:
			toggle(passes, pipeline.PassGrid)
		case common.KeyO:
			toggle(passes, pipeline.PassOutline)
		}
	}
	in.pressed = in.pressed[:0]
}

func toggle(passes passToggler, kind pipeline.PassKind) {
	if passes != nil {
		passes.SetPassVisible(kind, !passes.PassVisible(kind))
	}
}
