package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent *engineWindow
	window *glfw.Window
}

// glfwLimit maps an unbounded size limit to GLFW's DontCare.
func glfwLimit(v int) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return v
}

// newPlatformWindow creates the GLFW window, registers its callbacks and stores it on w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize GLFW: %w", err)
	}

	// WebGPU owns the swap chain, so no OpenGL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if w.resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create GLFW window: %w", err)
	}
	win.SetSizeLimits(glfwLimit(w.minSize[0]), glfwLimit(w.minSize[1]), glfwLimit(w.maxSize[0]), glfwLimit(w.maxSize[1]))

	gw := &glfwWindow{parent: w, window: win}
	w.platform = gw

	win.SetKeyCallback(gw.onKey)
	win.SetMouseButtonCallback(gw.onMouseButton)
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if cb := w.events.Cursor; cb != nil {
			cb(gw.toFramebuffer(x, y))
		}
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if cb := w.events.Scroll; cb != nil {
			cb(float32(yoff))
		}
	})
	// Framebuffer size, not window size: they differ on high-DPI displays and the surface
	// is configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.framebufferResized(width, height)
	})

	w.width, w.height = win.GetFramebufferSize()
	return nil
}

func (gw *glfwWindow) onKey(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		win.SetShouldClose(true)
		return
	}
	cb := gw.parent.events.Key
	if cb == nil || key == glfw.KeyUnknown {
		return
	}
	switch action {
	case glfw.Press, glfw.Repeat:
		cb(uint32(key), true)
	case glfw.Release:
		cb(uint32(key), false)
	}
}

func (gw *glfwWindow) onMouseButton(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	cb := gw.parent.events.Button
	if cb == nil {
		return
	}
	var b MouseButton
	switch button {
	case glfw.MouseButtonLeft:
		b = ButtonLeft
	case glfw.MouseButtonMiddle:
		b = ButtonMiddle
	case glfw.MouseButtonRight:
		b = ButtonRight
	default:
		return
	}
	x, y := gw.toFramebuffer(win.GetCursorPos())
	cb(b, action == glfw.Press, x, y)
}

// toFramebuffer scales a cursor position from screen coordinates to framebuffer pixels.
func (gw *glfwWindow) toFramebuffer(x, y float64) (int32, int32) {
	sw, sh := gw.window.GetSize()
	fw, fh := gw.window.GetFramebufferSize()
	if sw > 0 && sh > 0 {
		x *= float64(fw) / float64(sw)
		y *= float64(fh) / float64(sh)
	}
	return int32(x), int32(y)
}

func (gw *glfwWindow) setTitle(title string) {
	gw.window.SetTitle(title)
}

// surfaceDescriptor uses the wgpuglfw bridge, which covers Windows, X11, Wayland and macOS.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (gw *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func (gw *glfwWindow) isRunning() bool {
	return !gw.window.ShouldClose()
}

// poll delivers pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func (gw *glfwWindow) poll() {
	glfw.PollEvents()
}

func (gw *glfwWindow) destroy() {
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
}
