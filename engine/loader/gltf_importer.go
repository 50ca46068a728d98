package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// importer converts one parsed glTF document into an Asset.
type importer struct {
	name  string
	file  *gltfFile
	log   *zap.Logger
	asset *Asset
}

// importGLTF runs the full import: textures first so materials can reference them, then
// materials so primitives can be validated against them, then the node hierarchy.
func importGLTF(name string, file *gltfFile, log *zap.Logger) (*Asset, error) {
	im := &importer{
		name:  name,
		file:  file,
		log:   log.With(zap.String("asset", name)),
		asset: &Asset{Name: name},
	}

	im.importTextures()
	if err := im.importMaterials(); err != nil {
		return nil, err
	}
	if err := im.importGeometry(); err != nil {
		return nil, err
	}
	if len(im.asset.Primitives) == 0 {
		return nil, fmt.Errorf("%w: %s has no triangle geometry", ErrUnsupported, name)
	}

	im.log.Debug("glTF imported",
		zap.Int("primitives", len(im.asset.Primitives)),
		zap.Int("materials", len(im.asset.Materials)),
		zap.Int("textures", len(im.asset.Textures)))
	return im.asset, nil
}

// gltfLoaderBackend reads .gltf and .glb files.
type gltfLoaderBackend struct {
	log *zap.Logger
}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend(log *zap.Logger) *gltfLoaderBackend {
	return &gltfLoaderBackend{log: log}
}

func (b *gltfLoaderBackend) Load(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := parseGLTF(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return importGLTF(filepath.Base(path), file, b.log)
}

func (b *gltfLoaderBackend) LoadReader(name string, r io.Reader, isGLB bool) (*Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isGLB != isGLBData(data) {
		return nil, fmt.Errorf("%w: GLB container expected %t", errInvalidGLB, isGLB)
	}
	file, err := parseGLTF(data, "")
	if err != nil {
		return nil, err
	}
	return importGLTF(name, file, b.log)
}
