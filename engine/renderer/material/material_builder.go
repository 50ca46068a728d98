package material

import "github.com/google/uuid"

// MaterialBuilderOption configures a material in NewMaterial.
type MaterialBuilderOption func(*material)

func WithName(name string) MaterialBuilderOption {
	return func(m *material) { m.name = name }
}

// WithAlbedo sets the linear RGBA base color factor. The albedo texture is multiplied by it.
func WithAlbedo(albedo [4]float32) MaterialBuilderOption {
	return func(m *material) { m.albedo = albedo }
}

// WithMetallicRoughness sets both scalar factors. Shading clamps roughness to [0.04, 1].
//
// Parameters:
//   - metallic: 0 for dielectrics, 1 for metals
//   - roughness: 0 for mirror-smooth, 1 for fully rough
//
// Returns:
//   - MaterialBuilderOption: option function to apply
func WithMetallicRoughness(metallic, roughness float32) MaterialBuilderOption {
	return func(m *material) { m.metallic, m.roughness = metallic, roughness }
}

func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) { m.metallic = metallic }
}

func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) { m.roughness = roughness }
}

// WithEmission sets the emissive factor, added after lighting.
func WithEmission(emission [3]float32) MaterialBuilderOption {
	return func(m *material) { m.emission = emission }
}

// WithOcclusion scales the ambient term.
func WithOcclusion(occlusion float32) MaterialBuilderOption {
	return func(m *material) { m.occlusion = occlusion }
}

// WithTexture assigns a texture handle to a channel. Out-of-range channels are ignored.
func WithTexture(channel Channel, texture uuid.UUID) MaterialBuilderOption {
	return func(m *material) {
		if channel >= 0 && channel < ChannelCount {
			m.textures[channel] = texture
		}
	}
}
