package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/*.wgsl
var builtinAssets embed.FS

// Builtin returns the embedded WGSL sources of the built-in passes, named like "pbr-vert.wgsl".
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinAssets, "assets")
	if err != nil {
		panic(fmt.Sprintf("shader: embedded assets missing: %v", err))
	}
	return sub
}

// ShaderType identifies the stage a shader module is written for.
type ShaderType int

const (
	// ShaderTypeVertex is a vertex stage with a @vertex entry point.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is a fragment stage with a @fragment entry point.
	ShaderTypeFragment
)

// String returns the stage name, which is also the WGSL entry point attribute.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// origin is where a shader's source is read from: a file inside fsys, or a path on disk.
type origin struct {
	fsys fs.FS
	name string
	path string
}

func (o origin) read() ([]byte, error) {
	if o.fsys != nil {
		return fs.ReadFile(o.fsys, o.name)
	}
	return os.ReadFile(o.path)
}

// compiled is everything derived from one version of the source. A shader swaps the whole
// value on reload, so readers never see layouts from one version and code from another.
type compiled struct {
	source        string
	entryPoint    string
	module        *wgpu.ShaderModuleDescriptor
	vertexBuffers []wgpu.VertexBufferLayout
	layouts       map[int]wgpu.BindGroupLayoutDescriptor
	names         map[int]map[int]string
	declarations  []Declaration
}

type shader struct {
	key   string
	stage ShaderType
	src   origin

	mu         sync.RWMutex
	cur        *compiled
	generation uint64
}

// Shader is one pre-processed and reflected WGSL stage: the code handed to the GPU plus the
// entry point, vertex buffers and bind group layouts a pipeline is built from.
type Shader interface {
	// Key returns the shader's cache key.
	Key() string

	// Path returns the source file on disk, empty for embedded sources.
	Path() string

	// ShaderType returns the stage.
	ShaderType() ShaderType

	// Source returns the WGSL after annotation expansion.
	Source() string

	// EntryPoint returns the name of the stage's entry point, e.g. "vs_main".
	EntryPoint() string

	// Module returns the descriptor the GPU module is created from, labelled with the key.
	Module() *wgpu.ShaderModuleDescriptor

	// VertexBuffers returns the vertex buffer layouts in slot order. The @location inputs of a
	// vertex entry point are packed into one interleaved buffer; fragment stages have none.
	VertexBuffers() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptors returns the reflected layouts keyed by group index. Every entry
	// is visible to both stages. Bindings annotated storage_uniform_dynamic take a dynamic offset.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Binding finds the binding index of a bound variable.
	//
	// Parameters:
	//   - group: the bind group index
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - int: the binding index, -1 if not found
	//   - bool: whether the variable is bound in group
	Binding(group int, name string) (int, bool)

	// Declarations returns the group and provider annotations of the source, in source order.
	Declarations() []Declaration

	// Generation counts successful reloads, zero after the initial load.
	Generation() uint64

	// Reload re-reads, pre-processes, reflects and validates the source. The new version
	// replaces the current one only if every step succeeds. Sources the validator cannot handle
	// are accepted.
	//
	// Returns:
	//   - error: the first failing step
	Reload() error
}

var _ Shader = &shader{}

// NewShader loads a shader from a file on disk. Only such shaders can be watched for changes.
//
// Parameters:
//   - key: the cache key
//   - shaderType: the stage
//   - sourcePath: the WGSL file
//
// Returns:
//   - Shader: the loaded shader
//   - error: an empty path, or a source that fails to read, expand or reflect
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader %s: empty source path", key)
	}
	return load(key, shaderType, origin{path: sourcePath})
}

// NewShaderFromFS loads a shader from a file inside fsys, typically Builtin().
func NewShaderFromFS(key string, shaderType ShaderType, fsys fs.FS, name string) (Shader, error) {
	if fsys == nil || name == "" {
		return nil, fmt.Errorf("shader %s: missing file system or name", key)
	}
	return load(key, shaderType, origin{fsys: fsys, name: name})
}

func load(key string, stage ShaderType, src origin) (*shader, error) {
	s := &shader{key: key, stage: stage, src: src}
	c, err := s.compile()
	if err != nil {
		return nil, err
	}
	s.cur = c
	return s, nil
}

// compile reads the source and derives a new version without touching the current one.
func (s *shader) compile() (*compiled, error) {
	raw, err := s.src.read()
	if err != nil {
		return nil, fmt.Errorf("shader %s: read source: %w", s.key, err)
	}

	source, decls, err := Expand(string(raw))
	if err != nil {
		return nil, fmt.Errorf("shader %s: expand annotations: %w", s.key, err)
	}

	r, err := reflectWGSL(source, s.stage, dynamicBindings(decls))
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", s.key, err)
	}
	return &compiled{
		source:        source,
		entryPoint:    r.entryPoint,
		module:        &wgpu.ShaderModuleDescriptor{Label: s.key, WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source}},
		vertexBuffers: r.vertexBuffers,
		layouts:       r.bindGroups,
		names:         r.bindingNames,
		declarations:  decls,
	}, nil
}

// dynamicBindings collects the group and binding of every dynamic-offset declaration.
func dynamicBindings(decls []Declaration) map[int]map[int]bool {
	dynamic := make(map[int]map[int]bool)
	for _, d := range decls {
		if !d.Dynamic() {
			continue
		}
		if dynamic[d.Group] == nil {
			dynamic[d.Group] = make(map[int]bool)
		}
		dynamic[d.Group][d.Binding] = true
	}
	return dynamic
}

func (s *shader) current() *compiled {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *shader) Key() string { return s.key }

func (s *shader) Path() string { return s.src.path }

func (s *shader) ShaderType() ShaderType { return s.stage }

func (s *shader) Source() string { return s.current().source }

func (s *shader) EntryPoint() string { return s.current().entryPoint }

func (s *shader) Module() *wgpu.ShaderModuleDescriptor { return s.current().module }

func (s *shader) VertexBuffers() []wgpu.VertexBufferLayout { return s.current().vertexBuffers }

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.current().layouts
}

func (s *shader) Binding(group int, name string) (int, bool) {
	for binding, n := range s.current().names[group] {
		if n == name {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Declarations() []Declaration { return s.current().declarations }

func (s *shader) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *shader) Reload() error {
	c, err := s.compile()
	if err != nil {
		return err
	}
	if err := Validate(c.source); err != nil && !errors.Is(err, ErrValidationUnsupported) {
		return fmt.Errorf("shader %s: %w", s.key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = c
	s.generation++
	return nil
}
