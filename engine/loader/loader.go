package loader

import (
	"errors"
	"fmt"
	"image"
	"io"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/engine/logger"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Asset is a static model imported on the host. Geometry is baked into world space, so every
// primitive is placed by a single instance transform.
type Asset struct {
	Name       string
	Primitives []Primitive
	Materials  []MaterialDesc
	Textures   []TextureDesc
}

// Primitive is one triangle list of an Asset.
type Primitive struct {
	Name     string // "<asset>/<node>/<primitive>"
	Vertices []mesh.GPUVertex
	Indices  []uint32
	Material int // index into Asset.Materials, -1 for the scene's default material
	Mesh     mesh.Mesh
}

// MaterialDesc holds the metallic-roughness factors of a material. Textures holds an index
// into Asset.Textures per channel, -1 when the channel is untextured.
type MaterialDesc struct {
	Name      string
	Albedo    [4]float32
	Metallic  float32
	Roughness float32
	Emission  [3]float32
	Occlusion float32
	Textures  [material.ChannelCount]int
}

// TextureDesc is a decoded texture image and the sampler mode it is read with. Image is nil
// when the source could not be decoded.
type TextureDesc struct {
	Image  image.Image
	Format string
	Mode   texture.SamplerMode
}

// Target receives the resources of an instantiated Asset. scene.Scene satisfies it.
type Target interface {
	AddTexture(img image.Image, mode texture.SamplerMode) (uuid.UUID, error)
	AddMaterial(m material.Material) int
	AddInstance(in mesh.Instance) int
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu  sync.RWMutex
	log *zap.Logger

	assetCache map[string]*Asset
	// inflight collapses concurrent loads of one key into a single import.
	inflight singleflight.Group

	backend loaderBackend
}

// Loader imports static models and caches them by path or name. Imported assets are
// host-side data; Instantiate adds them to a scene.
type Loader interface {
	// Load imports a .gltf or .glb file, or returns the asset cached under its path.
	Load(path string) (*Asset, error)

	// LoadReader imports a model from a stream and caches it under name. External buffer and
	// image URIs cannot be resolved from a stream; data URIs and GLB chunks can.
	LoadReader(name string, r io.Reader, isGLB bool) (*Asset, error)

	// Get returns a cached asset, or nil.
	Get(name string) *Asset

	// Assets returns a copy of the asset cache.
	Assets() map[string]*Asset

	// Instantiate adds an asset's textures, materials and one instance per primitive to a target.
	// Every call adds its own copies of the textures and materials. Textures that do not fit in
	// the target's texture table are skipped and their channels use the default texture.
	//
	// Parameters:
	//   - a: the asset to place
	//   - target: the receiving scene
	//   - options: instance options applied to every primitive, e.g. mesh.WithPosition
	//
	// Returns:
	//   - []mesh.Instance: the added instances, in primitive order
	//   - error: a texture error other than a full table
	Instantiate(a *Asset, target Target, options ...mesh.InstanceBuilderOption) ([]mesh.Instance, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader importing through the given backend.
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		log:        logger.Named("loader"),
		assetCache: make(map[string]*Asset),
	}

	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.log)
	}
	return l
}

func (l *loader) Load(path string) (*Asset, error) {
	return l.load(path, func() (*Asset, error) {
		backend, err := l.resolveBackend(path)
		if err != nil {
			return nil, err
		}
		a, err := backend.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		return a, nil
	})
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Asset, error) {
	return l.load(name, func() (*Asset, error) {
		if l.backend == nil {
			return nil, errors.New("loader: no backend")
		}
		a, err := l.backend.LoadReader(name, r, isGLB)
		if err != nil {
			return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
		}
		return a, nil
	})
}

// load returns the asset cached under key or imports it once, sharing the result with callers
// that ask for the same key while the import runs. Failed imports are not cached.
func (l *loader) load(key string, importFn func() (*Asset, error)) (*Asset, error) {
	if cached := l.Get(key); cached != nil {
		return cached, nil
	}
	v, err, shared := l.inflight.Do(key, func() (any, error) {
		if cached := l.Get(key); cached != nil {
			return cached, nil
		}
		a, err := importFn()
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.assetCache[key] = a
		l.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.log.Debug("joined in-flight load", zap.String("key", key))
	}
	return v.(*Asset), nil
}

func (l *loader) Get(name string) *Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetCache[name]
}

func (l *loader) Assets() map[string]*Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.assetCache)
}

func (l *loader) Instantiate(a *Asset, target Target, options ...mesh.InstanceBuilderOption) ([]mesh.Instance, error) {
	textures := make([]uuid.UUID, len(a.Textures))
	for i, t := range a.Textures {
		if t.Image == nil {
			continue
		}
		id, err := target.AddTexture(t.Image, t.Mode)
		switch {
		case errors.Is(err, texture.ErrSetFull):
			l.log.Warn("texture table full, using default texture", zap.String("asset", a.Name), zap.Int("texture", i))
			continue
		case err != nil:
			return nil, fmt.Errorf("asset %q texture %d: %w", a.Name, i, err)
		}
		textures[i] = id
	}

	materials := make([]uuid.UUID, len(a.Materials))
	for i, desc := range a.Materials {
		opts := []material.MaterialBuilderOption{
			material.WithName(desc.Name),
			material.WithAlbedo(desc.Albedo),
			material.WithMetallicRoughness(desc.Metallic, desc.Roughness),
			material.WithEmission(desc.Emission),
			material.WithOcclusion(desc.Occlusion),
		}
		for c, ti := range desc.Textures {
			if ti >= 0 && ti < len(textures) && textures[ti] != uuid.Nil {
				opts = append(opts, material.WithTexture(material.Channel(c), textures[ti]))
			}
		}
		m := material.NewMaterial(opts...)
		target.AddMaterial(m)
		materials[i] = m.ID()
	}

	instances := make([]mesh.Instance, 0, len(a.Primitives))
	for _, p := range a.Primitives {
		opts := append([]mesh.InstanceBuilderOption(nil), options...)
		if p.Material >= 0 && p.Material < len(materials) {
			opts = append(opts, mesh.WithMaterial(materials[p.Material]))
		}
		in := mesh.NewInstance(p.Mesh, opts...)
		target.AddInstance(in)
		instances = append(instances, in)
	}

	l.log.Info("asset instantiated",
		zap.String("asset", a.Name),
		zap.Int("instances", len(instances)),
		zap.Int("materials", len(materials)))
	return instances, nil
}

// resolveBackend picks the backend for a file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		if l.backend != nil {
			return l.backend, nil
		}
	}
	return nil, fmt.Errorf("unsupported model format: %s", ext)
}

// IsModelPath reports whether a path names a file format the loader can import.
func IsModelPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".gltf" || ext == ".glb"
}
