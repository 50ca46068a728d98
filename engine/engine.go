package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/logger"
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/window"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errNoWindow = errors.New("engine: no window")
	errNoScene  = errors.New("engine: no scene")
)

// clickQueueSize bounds the clicks waiting for the render thread. Further clicks are dropped.
const clickQueueSize = 4

// engine implements the Engine interface.
//
// Three threads cooperate: the window thread runs ProcessMessages and owns the window, the
// tick goroutine applies camera input at a fixed rate, and the render goroutine owns the
// device (picking readback, shader reload, frame submission).
type engine struct {
	log *zap.Logger

	window window.Window
	scene  scene.Scene
	input  *orbitInput
	clicks chan [2]int32

	running  atomic.Bool
	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
	downOnce sync.Once

	tickRate      time.Duration
	tickRateCh    chan time.Duration
	tickCallback  func(deltaTime float32)
	frameCallback func(deltaTime float32)
	frameLimit    time.Duration // minimum frame duration; 0 = uncapped

	profiler  *profiler.Profiler
	profiling bool
	baseTitle string
}

// Engine drives a scene: it turns window input into camera motion, pass toggles and selection,
// and submits frames until the window closes.
//
// Left click selects the instance under the cursor (or clears the selection over background),
// middle drag and W/A/S/D orbit, scroll zooms, R resets the camera, G and O toggle the grid
// and outline passes.
type Engine interface {
	// Window returns the window the engine pumps.
	Window() window.Window

	// Scene returns the scene being rendered, nil if none was set.
	Scene() scene.Scene

	// SetScene replaces the scene being rendered. The previous scene is not released.
	//
	// Parameters:
	//   - s: the scene to render
	SetScene(s scene.Scene)

	// EnableProfiler logs frame statistics and shows the frame rate in the window title.
	EnableProfiler()

	// DisableProfiler stops frame statistics output.
	DisableProfiler()

	// SetTickRate sets how often camera input is applied, in ticks per second.
	//
	// Parameters:
	//   - hz: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(hz float64)

	// SetTickCallback registers a function called each tick, after camera input is applied.
	//
	// Parameters:
	//   - callback: receives the seconds since the previous tick
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers a function called after each submitted or abandoned frame.
	//
	// Parameters:
	//   - callback: receives the seconds since the previous frame
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the render loop in frames per second; 0 uncaps it (default).
	SetRenderFrameLimit(fps float64)

	// Run starts the tick and render loops and pumps window messages on the calling thread
	// until the window closes or Quit is called. The loops are stopped and the window is
	// closed before Run returns.
	//
	// Returns:
	//   - error: an error if no window or scene is set
	Run() error

	// Quit asks Run to return. Safe to call from any goroutine, any number of times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// When a window is set its events are bound to the scene camera, selection and passes.
//
// Parameters:
//   - options: functional options for engine configuration (window, scene, profiling, tick rate)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		log:        logger.Named("engine"),
		input:      newOrbitInput(),
		clicks:     make(chan [2]int32, clickQueueSize),
		quit:       make(chan struct{}),
		tickRate:   hzToPeriod(60),
		tickRateCh: make(chan time.Duration, 1),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}
	if e.window != nil {
		e.bindWindow()
	}
	return e
}

// hzToPeriod converts a rate to its period, falling back to 60 Hz for non-positive rates.
func hzToPeriod(hz float64) time.Duration {
	if hz <= 0 {
		hz = 60
	}
	return time.Duration(float64(time.Second) / hz)
}

// bindWindow routes window events. Everything runs on the window thread; clicks are queued
// for the render thread, which owns the picking readback.
func (e *engine) bindWindow() {
	e.baseTitle = e.window.Title()
	e.window.SetEvents(window.Events{
		Frame:  e.windowFrame,
		Resize: e.resize,
		Key:    e.input.key,
		Button: e.button,
		Cursor: e.input.cursor,
		Scroll: e.input.scroll,
	})
}

func (e *engine) button(b window.MouseButton, down bool, x, y int32) {
	switch b {
	case window.ButtonLeft:
		if !down {
			return
		}
		select {
		case e.clicks <- [2]int32{x, y}:
		default:
			e.log.Debug("click dropped", zap.Int32("x", x), zap.Int32("y", y))
		}
	case window.ButtonMiddle:
		e.input.drag(down, x, y)
	}
}

// windowFrame runs after every message pump: it finishes a requested shutdown and keeps the
// title bar current.
func (e *engine) windowFrame() {
	select {
	case <-e.quit:
		e.shutdown()
		return
	default:
	}
	e.window.SetTitle(e.title())
}

// title composes the window title from the frame rate and the selected mesh.
func (e *engine) title() string {
	t := e.baseTitle
	if e.profiling {
		if fps := e.profiler.Last().FPS; fps > 0 {
			t = fmt.Sprintf("%s | %.0f fps", t, fps)
		}
	}
	if e.scene != nil {
		if in := e.scene.Instance(e.scene.Selected()); in != nil {
			t = fmt.Sprintf("%s | %s", t, in.Geometry().Name())
		}
	}
	return t
}

// resize reconfigures the surface and keeps the camera aspect in step with it. Minimized
// windows report a zero size and are ignored.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 || e.scene == nil {
		return
	}
	if r := e.scene.Renderer(); r != nil {
		r.Resize(width, height)
	}
	if c := e.scene.Camera(); c != nil {
		c.SetAspect(float32(width) / float32(height))
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.scene = s
}

func (e *engine) Run() error {
	if e.window == nil {
		return errNoWindow
	}
	if e.scene == nil {
		return errNoScene
	}
	e.resize(e.window.Size())

	e.running.Store(true)
	e.wg.Add(2)
	go e.tickLoop()
	go e.renderLoop()

	e.window.ProcessMessages()
	e.shutdown()
	return nil
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quit)
	})
}

// shutdown stops the loops, waits for them and closes the window. Must run on the window thread.
func (e *engine) shutdown() {
	e.Quit()
	e.wg.Wait()
	e.downOnce.Do(func() {
		if err := e.window.Close(); err != nil {
			e.log.Warn("window close failed", zap.Error(err))
		}
	})
}

// tickLoop applies input at the tick rate and follows rate changes until quit.
func (e *engine) tickLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-e.quit:
			return
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			e.tick(dt)
		case rate := <-e.tickRateCh:
			e.tickRate = rate
			ticker.Reset(rate)
		}
	}
}

// tick applies the input gathered since the previous tick to the scene camera.
func (e *engine) tick(dt float32) {
	if e.scene != nil {
		if c := e.scene.Camera(); c != nil && c.Controller() != nil {
			e.input.apply(c.Controller(), e.scene)
		}
	}
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// renderLoop submits frames until quit. A panic inside a frame is logged and stops the engine
// instead of taking the process down with the window still open.
func (e *engine) renderLoop() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("render loop panicked", zap.Any("panic", r), zap.Stack("stack"))
			e.Quit()
		}
	}()

	last := time.Now()
	for {
		select {
		case <-e.quit:
			return
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		e.renderFrame()
		if e.frameCallback != nil {
			e.frameCallback(dt)
		}
		if e.frameLimit > 0 {
			if wait := e.frameLimit - time.Since(start); wait > 0 {
				time.Sleep(wait)
			}
		}
	}
}

// renderFrame resolves queued clicks against the previous frame, applies shader reloads and
// submits one frame of the active scene.
func (e *engine) renderFrame() {
	s := e.scene
	if s == nil || !s.Active() {
		return
	}

	for drained := false; !drained; {
		select {
		case c := <-e.clicks:
			e.selectAt(s, int(c[0]), int(c[1]))
		default:
			drained = true
		}
	}

	if n := s.ReloadShaders(); n > 0 {
		e.log.Info("shaders reloaded", zap.Int("pipelines", n))
	}

	if err := s.Render(); err != nil {
		e.log.Warn("frame abandoned", zap.String("scene", s.Name()), zap.Error(err))
		e.profiler.Reject()
		return
	}
	if e.profiling {
		e.profiler.Tick()
	}
}

// selectAt outlines the instance under a pixel of the last frame, or clears the selection
// when the pixel shows background. A failed pick leaves the selection alone.
func (e *engine) selectAt(s scene.Scene, x, y int) {
	in, err := s.Pick(x, y)
	if err != nil {
		e.log.Debug("pick failed", zap.Int("x", x), zap.Int("y", y), zap.Error(err))
		return
	}
	if in == nil {
		s.Select(uuid.Nil)
		return
	}
	s.Select(in.ID())
	e.log.Debug("instance selected", zap.Stringer("id", in.ID()), zap.String("mesh", in.Geometry().Name()))
}

func (e *engine) EnableProfiler() {
	e.profiling = true
}

func (e *engine) DisableProfiler() {
	e.profiling = false
}

// SetTickRate takes effect on the next tick when the engine is running.
func (e *engine) SetTickRate(hz float64) {
	rate := hzToPeriod(hz)
	if !e.running.Load() {
		e.tickRate = rate
		return
	}
	// replace any rate the tick loop has not picked up yet
	for {
		select {
		case e.tickRateCh <- rate:
			return
		default:
			select {
			case <-e.tickRateCh:
			default:
			}
		}
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.frameCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.frameLimit = 0
		return
	}
	e.frameLimit = hzToPeriod(fps)
}
