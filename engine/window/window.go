package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies a mouse button in a button event.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "unknown"
	}
}

// Events are the callbacks a Window delivers on the thread running ProcessMessages.
// Nil callbacks are skipped. Positions and sizes are framebuffer pixels, the unit the surface
// and the picking target are sized in.
type Events struct {
	// Frame runs once per message loop iteration, after pending events were delivered.
	Frame func()

	// Resize reports the new framebuffer size.
	Resize func(width, height int)

	// Key reports a key transition. Auto-repeat delivers down again without an up in between.
	Key func(code uint32, down bool)

	// Button reports a mouse button transition at the cursor position.
	Button func(button MouseButton, down bool, x, y int32)

	// Cursor reports cursor movement inside the window.
	Cursor func(x, y int32)

	// Scroll reports vertical wheel movement; positive scrolls away from the user.
	Scroll func(delta float32)
}

// Window is a native window that hosts the WebGPU surface and turns platform input into Events.
// Escape closes the window.
type Window interface {
	// SetEvents replaces the event callbacks.
	//
	// Parameters:
	//   - events: the callbacks to deliver, nil fields are skipped
	SetEvents(events Events)

	// SetTitle changes the title bar text. Must be called on the window thread.
	SetTitle(title string)

	// Title returns the current title bar text.
	Title() string

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was already closed
	Close() error

	// ProcessMessages pumps platform events until the window is closed, calling Events.Frame
	// after every pump. Must be called on the thread that created the window.
	ProcessMessages()

	// Size returns the framebuffer size in pixels.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (width, height int)
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	width     int
	height    int
	minSize   [2]int // zero means unbounded
	maxSize   [2]int
	resizable bool

	platform *glfwWindow
	events   Events
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a native window. The calling goroutine is locked to its OS
// thread, which must then run ProcessMessages.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	return w, nil
}

// newEngineWindow applies the options over the defaults without opening a platform window.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-shade",
		width:     1280,
		height:    720,
		minSize:   [2]int{320, 240},
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width = max(w.width, w.minSize[0], 1)
	w.height = max(w.height, w.minSize[1], 1)
	if w.maxSize[0] > 0 {
		w.width = min(w.width, w.maxSize[0])
	}
	if w.maxSize[1] > 0 {
		w.height = min(w.height, w.maxSize[1])
	}
	return w
}

func (w *engineWindow) SetEvents(events Events) {
	w.events = events
}

func (w *engineWindow) SetTitle(title string) {
	if title == w.title {
		return
	}
	w.title = title
	if w.platform != nil {
		w.platform.setTitle(title)
	}
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && w.platform.isRunning()
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window %q is not open", w.title)
	}
	w.platform.destroy()
	w.platform = nil
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		w.platform.poll()
		if w.events.Frame != nil {
			w.events.Frame()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

// framebufferResized records the new size and forwards it. Minimized windows report zero.
func (w *engineWindow) framebufferResized(width, height int) {
	w.width, w.height = width, height
	if w.events.Resize != nil {
		w.events.Resize(width, height)
	}
}
