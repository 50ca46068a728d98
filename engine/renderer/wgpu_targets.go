package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// attachment is a render target texture and its default view.
type attachment struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (a *attachment) release() {
	if a.view != nil {
		a.view.Release()
	}
	if a.texture != nil {
		a.texture.Release()
	}
	*a = attachment{}
}

// renderTargets holds everything that depends on the surface size. The surface pass draws into
// msaa (when multisampled) and resolves into the swapchain; the picking pass draws single-sampled
// into its own color and depth so identifiers are never blended or resolved.
type renderTargets struct {
	format        wgpu.TextureFormat
	samples       uint32
	width, height uint32

	msaa, depth          attachment
	pickColor, pickDepth attachment
	picking              bool
}

func (t *renderTargets) release() {
	for _, a := range []*attachment{&t.msaa, &t.depth, &t.pickColor, &t.pickDepth} {
		a.release()
	}
}

// colorFormat returns the attachment format and sample count pipelines of a target compile against.
func (t *renderTargets) colorFormat(target pipeline.Target) (wgpu.TextureFormat, uint32) {
	if target == pipeline.TargetPicking {
		return PickingFormat, 1
	}
	return t.format, t.samples
}

func depthAttachment(view *wgpu.TextureView) *wgpu.RenderPassDepthStencilAttachment {
	return &wgpu.RenderPassDepthStencilAttachment{
		View:            view,
		DepthLoadOp:     wgpu.LoadOpClear,
		DepthStoreOp:    wgpu.StoreOpDiscard,
		DepthClearValue: 1.0,
	}
}

// surfacePass describes the surface pass rendering into the swapchain view of one frame.
func (t *renderTargets) surfacePass(swapchain *wgpu.TextureView, clear wgpu.Color) *wgpu.RenderPassDescriptor {
	color := wgpu.RenderPassColorAttachment{
		View:       swapchain,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: clear,
	}
	if t.samples > 1 {
		// samples are resolved into the swapchain, the multisampled texture is not kept
		color.View = t.msaa.view
		color.ResolveTarget = swapchain
		color.StoreOp = wgpu.StoreOpDiscard
	}
	return &wgpu.RenderPassDescriptor{
		Label:                  "surface pass",
		ColorAttachments:       []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: depthAttachment(t.depth.view),
	}
}

// pickingPass describes the picking pass. Background clears to zero, which decodes as a miss.
func (t *renderTargets) pickingPass() *wgpu.RenderPassDescriptor {
	return &wgpu.RenderPassDescriptor{
		Label: "picking pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.pickColor.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
		DepthStencilAttachment: depthAttachment(t.pickDepth.view),
	}
}

// createAttachment creates a single-mip 2D texture of the target size and its view.
func (b *wgpuBackend) createAttachment(label string, format wgpu.TextureFormat, width, height, samples uint32, usage wgpu.TextureUsage) (attachment, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return attachment{}, fmt.Errorf("%s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return attachment{}, fmt.Errorf("%s view: %w", label, err)
	}
	return attachment{texture: tex, view: view}, nil
}

// createTargets creates the attachments for a surface of the given format and size. Nothing is
// kept when any attachment fails.
func (b *wgpuBackend) createTargets(format wgpu.TextureFormat, width, height uint32) (*renderTargets, error) {
	t := &renderTargets{
		format:  format,
		samples: uint32(b.cfg.samples),
		width:   width,
		height:  height,
		picking: b.cfg.picking,
	}

	type spec struct {
		into    *attachment
		label   string
		format  wgpu.TextureFormat
		samples uint32
		usage   wgpu.TextureUsage
	}
	// depth must match the color attachment's sample count
	specs := []spec{{&t.depth, "depth", DepthFormat, t.samples, wgpu.TextureUsageRenderAttachment}}
	if t.samples > 1 {
		specs = append(specs, spec{&t.msaa, "msaa color", format, t.samples, wgpu.TextureUsageRenderAttachment})
	}
	if t.picking {
		specs = append(specs,
			spec{&t.pickColor, "picking color", PickingFormat, 1, wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc},
			spec{&t.pickDepth, "picking depth", DepthFormat, 1, wgpu.TextureUsageRenderAttachment},
		)
	}

	for _, s := range specs {
		a, err := b.createAttachment(s.label, s.format, width, height, s.samples, s.usage)
		if err != nil {
			t.release()
			return nil, err
		}
		*s.into = a
	}
	return t, nil
}
