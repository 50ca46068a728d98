package shader

import "go.uber.org/zap"

// WatcherBuilderOption is a functional option for configuring a Watcher.
type WatcherBuilderOption func(*watcher)

// WithWatcherLogger sets the logger used for reload results.
//
// Parameters:
//   - l: the logger, nil keeps the no-op default
//
// Returns:
//   - WatcherBuilderOption: a function that applies the logger option to a watcher
func WithWatcherLogger(l *zap.Logger) WatcherBuilderOption {
	return func(w *watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReloadBuffer sets the capacity of the Reloaded channel.
//
// Parameters:
//   - n: the channel capacity, values below 1 are ignored
//
// Returns:
//   - WatcherBuilderOption: a function that applies the buffer option to a watcher
func WithReloadBuffer(n int) WatcherBuilderOption {
	return func(w *watcher) {
		if n > 0 {
			w.buffer = n
		}
	}
}
