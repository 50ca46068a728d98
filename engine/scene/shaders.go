package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"go.uber.org/zap"
)

// loadShader reads one stage of a pass from the shader directory when one is configured,
// otherwise from the scene's file system.
func (s *scene) loadShader(key string, t shader.ShaderType, name string) (shader.Shader, error) {
	var (
		sh  shader.Shader
		err error
	)
	if s.shaderDir != "" {
		sh, err = shader.NewShader(key, t, filepath.Join(s.shaderDir, name))
	} else {
		sh, err = shader.NewShaderFromFS(key, t, s.shaderFS, name)
	}
	if err != nil {
		return nil, err
	}

	if s.validateShaders {
		if err := shader.Validate(sh.Source()); err != nil {
			if !errors.Is(err, shader.ErrValidationUnsupported) {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			s.log.Debug("shader validation skipped", zap.String("shader", key), zap.Error(err))
		}
	}
	return sh, nil
}

// loadPipelines builds and registers the pipeline of every enabled pass and starts watching
// their sources when hot reload is on.
func (s *scene) loadPipelines() error {
	var built []pipeline.Pipeline
	for _, d := range pipeline.Passes() {
		if !s.enabled[d.Kind] {
			continue
		}
		vs, err := s.loadShader(d.Key()+"-vert", shader.ShaderTypeVertex, d.VertexShader)
		if err != nil {
			return fmt.Errorf("scene %q: %s pass: %w", s.name, d.Kind, err)
		}
		fs, err := s.loadShader(d.Key()+"-frag", shader.ShaderTypeFragment, d.FragmentShader)
		if err != nil {
			return fmt.Errorf("scene %q: %s pass: %w", s.name, d.Kind, err)
		}
		p, err := pipeline.NewPassPipeline(d, vs, fs)
		if err != nil {
			return fmt.Errorf("scene %q: %w", s.name, err)
		}
		s.pipelines[d.Kind] = p
		built = append(built, p)
	}

	if err := s.r.RegisterPipelines(built...); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}

	if !s.hotReload || s.shaderDir == "" {
		return nil
	}
	w, err := shader.NewWatcher(shader.WithWatcherLogger(s.log.Named("shaders")))
	if err != nil {
		return fmt.Errorf("scene %q: shader watcher: %w", s.name, err)
	}
	for _, p := range built {
		for _, t := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment} {
			if err := w.Watch(p.Shader(t)); err != nil {
				w.Close()
				return fmt.Errorf("scene %q: watch %s: %w", s.name, p.Shader(t).Path(), err)
			}
		}
	}
	s.watcher = w
	s.log.Info("shader hot reload enabled", zap.String("dir", s.shaderDir))
	return nil
}

func (s *scene) ReloadShaders() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuilt := 0
	if s.watcher != nil {
	drain:
		for {
			select {
			case sh := <-s.watcher.Reloaded():
				rebuilt += s.applyReload(sh)
			default:
				break drain
			}
		}
	}

	// a reload whose delivery was dropped still leaves its pipeline stale
	for _, kind := range s.passOrder() {
		if p := s.pipelines[kind]; p.Stale() && s.rebuild(kind) {
			rebuilt++
		}
	}
	return rebuilt
}

// applyReload rebuilds every pipeline that uses sh. The caller holds s.mu.
func (s *scene) applyReload(sh shader.Shader) int {
	rebuilt := 0
	for _, kind := range s.passOrder() {
		p := s.pipelines[kind]
		if p.Shader(sh.ShaderType()) != sh {
			continue
		}
		if s.rebuild(kind) {
			rebuilt++
		}
	}
	return rebuilt
}

// rebuild re-verifies a pass against its reloaded shaders and recreates its GPU pipeline.
// The previous pipeline keeps drawing when either step fails. The caller holds s.mu.
func (s *scene) rebuild(kind pipeline.PassKind) bool {
	p := s.pipelines[kind]
	d, _ := pipeline.Describe(kind)

	vs, fs := p.Shader(shader.ShaderTypeVertex), p.Shader(shader.ShaderTypeFragment)
	if err := d.Verify(slices.Concat(vs.Declarations(), fs.Declarations())); err != nil {
		s.log.Error("reloaded shaders no longer match pass, keeping previous pipeline",
			zap.Stringer("pass", kind), zap.Error(err))
		return false
	}
	if err := s.r.RebuildPipeline(p); err != nil {
		s.log.Error("pipeline rebuild failed", zap.Stringer("pass", kind), zap.Error(err))
		return false
	}

	// bind groups were created against the previous layouts
	for _, g := range d.Groups {
		if g == pipeline.GroupPayload {
			s.payloads[kind].Invalidate()
			continue
		}
		s.providers[g].Invalidate()
	}
	s.log.Info("pipeline rebuilt", zap.Stringer("pass", kind))
	return true
}

// passOrder returns the enabled passes in submission order.
func (s *scene) passOrder() []pipeline.PassKind {
	var kinds []pipeline.PassKind
	for _, d := range pipeline.Passes() {
		if _, ok := s.pipelines[d.Kind]; ok {
			kinds = append(kinds, d.Kind)
		}
	}
	return kinds
}
