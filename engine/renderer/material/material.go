package material

import (
	"sync"

	"github.com/google/uuid"
)

const (
	// DefaultMetallic is the metallic factor of materials that do not set one.
	DefaultMetallic float32 = 0.5
	// DefaultRoughness is the roughness factor of materials that do not set one.
	DefaultRoughness float32 = 0.5
)

// Channel identifies one of the five texture slots of a material.
type Channel int

const (
	// ChannelAlbedo is the base color texture, sRGB encoded.
	ChannelAlbedo Channel = iota
	// ChannelNormal is the tangent-space normal map. The default texture yields the flat normal.
	ChannelNormal
	// ChannelMetalRoughness packs roughness in G and metallic in B.
	ChannelMetalRoughness
	// ChannelOcclusion stores ambient occlusion in R.
	ChannelOcclusion
	// ChannelEmission is the emissive color texture, sRGB encoded.
	ChannelEmission

	// ChannelCount is the number of texture channels.
	ChannelCount
)

// String returns the record field name of the channel.
func (c Channel) String() string {
	switch c {
	case ChannelAlbedo:
		return "albedo_texture"
	case ChannelNormal:
		return "normal_texture"
	case ChannelMetalRoughness:
		return "metal_roughness_texture"
	case ChannelOcclusion:
		return "occlusion_texture"
	case ChannelEmission:
		return "emission_texture"
	default:
		return "unknown_texture"
	}
}

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	id        uuid.UUID
	name      string
	albedo    [4]float32
	metallic  float32
	roughness float32
	emission  [3]float32
	occlusion float32
	textures  [ChannelCount]uuid.UUID
}

// Material describes a metallic-roughness surface: constant factors plus one optional
// texture per Channel. Textures are referenced by handle; the scene resolves handles to
// texture table indices when it builds the material table, and an unset or unknown handle
// resolves to index 0, the neutral default texture.
type Material interface {
	// ID returns the handle identifying this material in the material table.
	//
	// Returns:
	//   - uuid.UUID: the material handle
	ID() uuid.UUID

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Albedo retrieves the linear RGBA base color factor.
	//
	// Returns:
	//   - [4]float32: the albedo factor
	Albedo() [4]float32

	// Metallic retrieves the metallic factor (0 dielectric, 1 metal).
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor (0 smooth, 1 fully rough).
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Emission retrieves the emissive factor.
	//
	// Returns:
	//   - [3]float32: the emission factor
	Emission() [3]float32

	// Occlusion retrieves the ambient occlusion factor.
	//
	// Returns:
	//   - float32: the occlusion factor
	Occlusion() float32

	// Texture returns the texture handle of a channel, uuid.Nil when unset.
	//
	// Parameters:
	//   - channel: the texture channel
	//
	// Returns:
	//   - uuid.UUID: the texture handle
	Texture(channel Channel) uuid.UUID

	// SetAlbedo sets the albedo factor.
	SetAlbedo(albedo [4]float32)

	// SetMetallicRoughness sets both scalar factors.
	SetMetallicRoughness(metallic, roughness float32)

	// SetEmission sets the emissive factor.
	SetEmission(emission [3]float32)

	// SetTexture assigns a texture handle to a channel. uuid.Nil restores the default texture.
	//
	// Parameters:
	//   - channel: the texture channel
	//   - texture: the texture handle
	SetTexture(channel Channel, texture uuid.UUID)

	// Record builds the material table entry.
	//
	// Parameters:
	//   - resolve: maps a texture handle to its texture table index; unknown handles must map to 0
	//
	// Returns:
	//   - GPUMaterialRecord: the table entry
	Record(resolve func(uuid.UUID) uint32) GPUMaterialRecord
}

var _ Material = &material{}

// NewMaterial creates a new Material with the default factors and no textures.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:        &sync.Mutex{},
		id:        uuid.New(),
		albedo:    [4]float32{1, 1, 1, 1},
		metallic:  DefaultMetallic,
		roughness: DefaultRoughness,
		occlusion: 1,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uuid.UUID {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Albedo() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.albedo
}

func (m *material) Metallic() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metallic
}

func (m *material) Roughness() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roughness
}

func (m *material) Emission() [3]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emission
}

func (m *material) Occlusion() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occlusion
}

func (m *material) Texture(channel Channel) uuid.UUID {
	if channel < 0 || channel >= ChannelCount {
		return uuid.Nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textures[channel]
}

func (m *material) SetAlbedo(albedo [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albedo = albedo
}

func (m *material) SetMetallicRoughness(metallic, roughness float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metallic, m.roughness = metallic, roughness
}

func (m *material) SetEmission(emission [3]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emission = emission
}

func (m *material) SetTexture(channel Channel, texture uuid.UUID) {
	if channel < 0 || channel >= ChannelCount {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textures[channel] = texture
}

func (m *material) Record(resolve func(uuid.UUID) uint32) GPUMaterialRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var idx [ChannelCount]uint32
	for c, handle := range m.textures {
		if handle != uuid.Nil && resolve != nil {
			idx[c] = resolve(handle)
		}
	}
	return GPUMaterialRecord{
		Albedo:                m.albedo,
		MetalRoughness:        [2]float32{m.metallic, m.roughness},
		Emission:              m.emission,
		Occlusion:             m.occlusion,
		AlbedoTexture:         idx[ChannelAlbedo],
		NormalTexture:         idx[ChannelNormal],
		MetalRoughnessTexture: idx[ChannelMetalRoughness],
		OcclusionTexture:      idx[ChannelOcclusion],
		EmissionTexture:       idx[ChannelEmission],
	}
}
