package loader

import (
	"bytes"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/texture"
	"go.uber.org/zap"
)

// importTextures decodes the image behind every glTF texture. Each image is decoded once even
// when several textures sample it. An image that fails to decode leaves its textures empty
// and materials fall back to the default texture for that channel.
func (im *importer) importTextures() {
	doc := &im.file.doc
	im.asset.Textures = make([]TextureDesc, len(doc.Textures))

	decoded := make(map[int]TextureDesc)
	for i, tex := range doc.Textures {
		mode := im.samplerMode(tex.Sampler)
		if tex.Source == nil {
			im.log.Warn("texture has no image source", zap.Int("texture", i))
			continue
		}
		src := *tex.Source

		desc, ok := decoded[src]
		if !ok {
			data, err := im.file.imageData(src)
			if err == nil {
				desc.Image, desc.Format, err = texture.Decode(bytes.NewReader(data))
			}
			if err != nil {
				im.log.Warn("texture image skipped", zap.Int("image", src), zap.Error(err))
			}
			decoded[src] = desc
		}
		desc.Mode = mode
		im.asset.Textures[i] = desc
	}
}

// samplerMode maps a glTF sampler onto the nearest of the scene's sampler modes. Nearest
// magnification wins over clamping; mixed wrap modes clamp when either axis clamps.
func (im *importer) samplerMode(index *int) texture.SamplerMode {
	if index == nil || *index < 0 || *index >= len(im.file.doc.Samplers) {
		return texture.SamplerLinearRepeat
	}
	s := im.file.doc.Samplers[*index]
	switch {
	case s.MagFilter != nil && *s.MagFilter == gltfFilterNearest:
		return texture.SamplerNearestRepeat
	case s.WrapS != nil && *s.WrapS == gltfWrapClampToEdge,
		s.WrapT != nil && *s.WrapT == gltfWrapClampToEdge:
		return texture.SamplerLinearClamp
	default:
		return texture.SamplerLinearRepeat
	}
}

// importMaterials converts metallic-roughness materials. Factors absent from the document
// take the glTF defaults: white albedo, fully metallic, fully rough, no emission.
func (im *importer) importMaterials() error {
	doc := &im.file.doc
	im.asset.Materials = make([]MaterialDesc, len(doc.Materials))

	for i, m := range doc.Materials {
		desc := MaterialDesc{
			Name:      m.Name,
			Albedo:    [4]float32{1, 1, 1, 1},
			Metallic:  1,
			Roughness: 1,
			Occlusion: 1,
		}
		if desc.Name == "" {
			desc.Name = fmt.Sprintf("%s/material%d", im.name, i)
		}
		for c := range desc.Textures {
			desc.Textures[c] = -1
		}

		if pbr := m.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				desc.Albedo = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				desc.Metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				desc.Roughness = *pbr.RoughnessFactor
			}
			if err := im.bindTexture(&desc, material.ChannelAlbedo, pbr.BaseColorTexture); err != nil {
				return err
			}
			if err := im.bindTexture(&desc, material.ChannelMetalRoughness, pbr.MetallicRoughnessTexture); err != nil {
				return err
			}
		}
		if m.EmissiveFactor != nil {
			desc.Emission = *m.EmissiveFactor
		}
		if err := im.bindTexture(&desc, material.ChannelNormal, m.NormalTexture); err != nil {
			return err
		}
		if err := im.bindTexture(&desc, material.ChannelEmission, m.EmissiveTexture); err != nil {
			return err
		}
		if occ := m.OcclusionTexture; occ != nil {
			if err := im.bindTexture(&desc, material.ChannelOcclusion, &occ.gltfTextureInfo); err != nil {
				return err
			}
			if occ.Strength != nil {
				desc.Occlusion = *occ.Strength
			}
		}

		im.asset.Materials[i] = desc
	}
	return nil
}

// bindTexture points a material channel at a texture. Secondary UV sets are not imported, so
// textures sampled through them are dropped with a warning.
func (im *importer) bindTexture(desc *MaterialDesc, channel material.Channel, info *gltfTextureInfo) error {
	if info == nil {
		return nil
	}
	if info.Index < 0 || info.Index >= len(im.asset.Textures) {
		return fmt.Errorf("%w: material %q texture %d of %d", ErrMalformed, desc.Name, info.Index, len(im.asset.Textures))
	}
	if info.TexCoord != 0 {
		im.log.Warn("texture uses a secondary UV set",
			zap.String("material", desc.Name), zap.Stringer("channel", channel), zap.Int("texCoord", info.TexCoord))
		return nil
	}
	if im.asset.Textures[info.Index].Image == nil {
		return nil
	}
	desc.Textures[channel] = info.Index
	return nil
}
