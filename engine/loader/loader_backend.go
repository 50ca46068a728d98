package loader

import (
	"io"
)

// loaderBackend defines the generic interface for loading assets from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load imports the asset at path. Relative buffer and image URIs resolve against the
	// file's directory.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	Load(path string) (*Asset, error)

	// LoadReader imports an asset from a reader stream.
	//
	// Parameters:
	//   - name: the asset name, used to label its meshes
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Asset, error)
}
