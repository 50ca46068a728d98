package window

import "github.com/Carmen-Shannon/oxy-shade/engine/config"

// WindowBuilderOption is a functional option for configuring a Window.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested initial size. High-DPI displays may report a larger framebuffer.
//
// Parameters:
//   - width: initial width in screen coordinates
//   - height: initial height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width, w.height = width, height
	}
}

// WithSizeLimits bounds interactive resizing. A zero limit leaves that side unbounded.
//
// Parameters:
//   - minWidth, minHeight: smallest size
//   - maxWidth, maxHeight: largest size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minSize = [2]int{max(minWidth, 0), max(minHeight, 0)}
		w.maxSize = [2]int{max(maxWidth, 0), max(maxHeight, 0)}
	}
}

// WithResizable allows or forbids interactive resizing. Windows are resizable by default.
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}

// WithConfig applies the title and size of a window configuration section.
//
// Parameters:
//   - cfg: the [window] section of the viewer configuration
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithConfig(cfg config.WindowConfig) WindowBuilderOption {
	return func(w *engineWindow) {
		if cfg.Title != "" {
			w.title = cfg.Title
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			w.width, w.height = cfg.Width, cfg.Height
		}
	}
}
