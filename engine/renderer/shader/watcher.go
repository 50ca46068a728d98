package shader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu *sync.Mutex

	fs       *fsnotify.Watcher
	shaders  map[string][]Shader
	dirs     map[string]bool
	reloaded chan Shader
	done     chan struct{}
	wg       *sync.WaitGroup
	closed   bool

	logger *zap.Logger
	buffer int
}

// Watcher watches the source files of disk-backed shaders and reloads them when they change.
// Reloads run on the watcher's goroutine; successfully reloaded shaders are delivered on
// Reloaded so the render thread can rebuild the pipelines that use them.
type Watcher interface {
	// Watch adds a shader to the watch list. Shaders without a Path (embedded sources) are ignored.
	//
	// Parameters:
	//   - s: the shader to watch
	//
	// Returns:
	//   - error: an error if the watcher is closed or the directory cannot be watched
	Watch(s Shader) error

	// Reloaded returns the channel on which successfully reloaded shaders are delivered.
	// When the channel is full further reloads are dropped from delivery, never blocked on.
	//
	// Returns:
	//   - <-chan Shader: the delivery channel
	Reloaded() <-chan Shader

	// Close stops the watch goroutine and releases the file system watcher.
	//
	// Returns:
	//   - error: an error if the underlying watcher failed to close
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher and starts its event goroutine.
//
// Parameters:
//   - options: configuration options for the watcher
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the platform watcher could not be created
func NewWatcher(options ...WatcherBuilderOption) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shader watcher: %w", err)
	}
	w := &watcher{
		mu:      &sync.Mutex{},
		fs:      fsw,
		shaders: make(map[string][]Shader),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
		wg:      &sync.WaitGroup{},
		logger:  zap.NewNop(),
		buffer:  16,
	}
	for _, opt := range options {
		opt(w)
	}
	w.reloaded = make(chan Shader, w.buffer)

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) Watch(s Shader) error {
	if s.Path() == "" {
		return nil
	}
	path, err := filepath.Abs(s.Path())
	if err != nil {
		return fmt.Errorf("shader watcher: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("shader watcher: closed")
	}

	// watch the directory, editors replace files instead of writing in place
	dir := filepath.Dir(path)
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("shader watcher: watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.shaders[path] = append(w.shaders[path], s)
	w.logger.Debug("watching shader", zap.String("key", s.Key()), zap.String("path", path))
	return nil
}

func (w *watcher) Reloaded() <-chan Shader {
	return w.reloaded
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return w.fs.Close()
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload(e.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("shader watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// reload re-parses every shader backed by path.
func (w *watcher) reload(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	targets := append([]Shader(nil), w.shaders[abs]...)
	w.mu.Unlock()

	for _, s := range targets {
		if err := s.Reload(); err != nil {
			w.logger.Error("shader reload failed, keeping previous version",
				zap.String("key", s.Key()), zap.Error(err))
			continue
		}
		w.logger.Info("shader reloaded", zap.String("key", s.Key()), zap.Uint64("generation", s.Generation()))
		select {
		case w.reloaded <- s:
		default:
			w.logger.Warn("shader reload queue full", zap.String("key", s.Key()))
		}
	}
}
