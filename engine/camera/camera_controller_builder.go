package camera

// CameraControllerOption configures a controller in NewCameraController.
type CameraControllerOption func(*cameraController)

// WithOrbit sets the starting orbit. It is clamped to the limits once all options are applied.
func WithOrbit(o Orbit) CameraControllerOption {
	return func(cc *cameraController) {
		cc.orbit = o
	}
}

// WithRadius sets the starting distance from the target.
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraController) {
		cc.orbit.Radius = radius
	}
}

// WithTarget sets the starting look-at point.
func WithTarget(target [3]float32) CameraControllerOption {
	return func(cc *cameraController) {
		cc.orbit.Target = target
	}
}

// WithLimits replaces the radius and elevation bounds.
func WithLimits(l Limits) CameraControllerOption {
	return func(cc *cameraController) {
		cc.limits = l
	}
}

// WithSpeeds sets the input multipliers.
//
// Parameters:
//   - orbit: radians per keyboard step
//   - mouse: radians per pixel of drag
//   - zoom: distance per scroll unit
//   - pan: distance per pan unit
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithSpeeds(orbit, mouse, zoom, pan float32) CameraControllerOption {
	return func(cc *cameraController) {
		cc.orbitSpeed, cc.mouseSensitivity, cc.zoomSpeed, cc.panSpeed = orbit, mouse, zoom, pan
	}
}
