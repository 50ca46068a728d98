package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/resource"
	"github.com/google/uuid"
)

// DefaultLayerSize is the edge length of every texture layer when no size is configured.
const DefaultLayerSize uint32 = 1024

// ErrSetFull is returned by Add when every layer of the set is in use.
var ErrSetFull = errors.New("texture set full")

// Set is the texture table: an array of equally sized RGBA8 layers plus one TextureEntry per
// texture. Index 0 always holds the neutral default, an opaque white layer sampled with
// SamplerLinearRepeat, so unset material channels resolve to a valid texture.
type Set struct {
	mu *sync.Mutex

	layerSize uint32
	maxLayers uint32
	entries   *resource.Table[GPUTextureEntry]
	layers    [][]byte
}

// NewSet creates a texture set holding only the default texture.
//
// Parameters:
//   - layerSize: edge length of every layer in pixels, 0 selects DefaultLayerSize
//   - maxLayers: maximum number of textures including the default, 0 means unbounded
//
// Returns:
//   - *Set: the new set
func NewSet(layerSize, maxLayers uint32) *Set {
	s := &Set{
		mu:        &sync.Mutex{},
		layerSize: common.Coalesce(layerSize, DefaultLayerSize),
		maxLayers: maxLayers,
		entries:   resource.NewTable[GPUTextureEntry]("textures"),
	}
	s.entries.Insert(uuid.Nil, GPUTextureEntry{Layer: 0, Sampler: uint32(SamplerLinearRepeat)})
	s.layers = append(s.layers, bytes.Repeat([]byte{0xFF}, int(s.layerSize*s.layerSize*4)))
	return s
}

// Add resamples img into a new layer and registers it under a fresh handle.
//
// Parameters:
//   - img: the source image, any size
//   - mode: the sampler used to read it
//
// Returns:
//   - uuid.UUID: the texture handle
//   - error: ErrSetFull if no layer is left, or an invalid sampler mode
func (s *Set) Add(img image.Image, mode SamplerMode) (uuid.UUID, error) {
	if mode >= SamplerModeCount {
		return uuid.Nil, fmt.Errorf("add texture: sampler mode %d: %w", mode, resource.ErrIndexOutOfRange)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxLayers > 0 && uint32(len(s.layers)) >= s.maxLayers {
		return uuid.Nil, fmt.Errorf("add texture: %d layers: %w", s.maxLayers, ErrSetFull)
	}

	id := uuid.New()
	layer := uint32(len(s.layers))
	s.layers = append(s.layers, Resample(img, s.layerSize))
	s.entries.Insert(id, GPUTextureEntry{Layer: layer, Sampler: uint32(mode)})
	return id, nil
}

// Index resolves a handle to its texture table index. Unknown handles and uuid.Nil resolve to 0.
//
// Parameters:
//   - id: the texture handle
//
// Returns:
//   - uint32: the texture table index
func (s *Set) Index(id uuid.UUID) uint32 {
	if i, ok := s.entries.Index(id); ok {
		return uint32(i)
	}
	return 0
}

// Len returns the number of textures, including the default.
func (s *Set) Len() int {
	return s.entries.Len()
}

// LayerSize returns the edge length of each layer.
func (s *Set) LayerSize() uint32 {
	return s.layerSize
}

// Revision returns a counter that increases whenever a texture is added.
func (s *Set) Revision() uint64 {
	return s.entries.Revision()
}

// Entries returns the texture table in index order.
func (s *Set) Entries() []GPUTextureEntry {
	return s.entries.Snapshot()
}

// MarshalEntries packs the texture table for upload.
func (s *Set) MarshalEntries() []byte {
	entries := s.entries.Snapshot()
	buf := make([]byte, 0, len(entries)*8)
	for i := range entries {
		buf = append(buf, entries[i].Marshal()...)
	}
	return buf
}

// Staging packs every layer back to back for upload into a texture array.
//
// Returns:
//   - common.TextureStagingData: RGBA8 pixels for all layers
func (s *Set) Staging() common.TextureStagingData {
	s.mu.Lock()
	defer s.mu.Unlock()
	layerBytes := int(s.layerSize * s.layerSize * 4)
	pixels := make([]byte, 0, layerBytes*len(s.layers))
	for _, l := range s.layers {
		pixels = append(pixels, l...)
	}
	return common.TextureStagingData{
		Pixels: pixels,
		Width:  s.layerSize,
		Height: s.layerSize,
		Layers: uint32(len(s.layers)),
	}
}
