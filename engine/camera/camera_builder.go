package camera

// CameraBuilderOption configures a camera in NewCamera.
type CameraBuilderOption func(*camera)

// WithLens replaces DefaultLens.
func WithLens(l Lens) CameraBuilderOption {
	return func(c *camera) {
		c.lens = l
	}
}

// WithAspect sets the aspect ratio of the lens, width / height.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *camera) {
		c.lens.Aspect = aspect
	}
}

// WithUp sets the world up vector, +Y by default.
func WithUp(up [3]float32) CameraBuilderOption {
	return func(c *camera) {
		c.up = up
	}
}

// WithController attaches the controller that places the eye.
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *camera) {
		c.ctrl = ctrl
	}
}
