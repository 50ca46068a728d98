package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// maxBindGroups covers the widest pass: camera, meshes, materials, lights and payload.
const maxBindGroups = 8

// wgpuBackend implements RendererBackend on WebGPU.
type wgpuBackend struct {
	mu  sync.Mutex
	log *zap.Logger
	cfg backendConfig

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	targets  *renderTargets
	readback *readback
	frame    *frame
}

var _ RendererBackend = &wgpuBackend{}

// newWGPUBackend opens an adapter and a device compatible with the surface. The calling thread
// stays locked to the OS thread for the life of the process, as the windowing system requires.
func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, cfg backendConfig, log *zap.Logger) (*wgpuBackend, error) {
	runtime.LockOSThread()

	b := &wgpuBackend{log: log, cfg: cfg, instance: wgpu.CreateInstance(nil)}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.fallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = maxBindGroups
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "oxy-shade device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	if cfg.picking {
		if b.readback, err = newReadback(device); err != nil {
			b.Release()
			return nil, err
		}
	}

	log.Info("device ready",
		zap.Uint32("msaa", uint32(cfg.samples)),
		zap.Bool("picking", cfg.picking),
		zap.Bool("fallback_adapter", cfg.fallbackAdapter),
	)
	return b, nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// minimized windows report a zero size
	if width <= 0 || height <= 0 {
		return nil
	}
	if b.frame != nil {
		return fmt.Errorf("resize to %dx%d during a frame", width, height)
	}

	caps := b.surface.GetCapabilities(b.adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return fmt.Errorf("surface reports no formats for this adapter")
	}
	format := caps.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.cfg.presentMode.wgpu(),
		AlphaMode:   caps.AlphaModes[0],
	})

	targets, err := b.createTargets(format, uint32(width), uint32(height))
	if err != nil {
		return err
	}
	if b.targets != nil {
		b.targets.release()
	}
	b.targets = targets

	b.log.Debug("surface configured", zap.Int("width", width), zap.Int("height", height), zap.Any("format", format))
	return nil
}

func (b *wgpuBackend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.targets == nil {
		return 0, 0
	}
	return int(b.targets.width), int(b.targets.height)
}

func (b *wgpuBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.presentMode = mode
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame != nil {
		b.frame.abandon()
		b.frame = nil
	}
	if b.targets != nil {
		b.targets.release()
		b.targets = nil
	}
	if b.readback != nil {
		b.readback.release()
		b.readback = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
