// Package shading is the host-side reference of the math the WGSL passes evaluate.
// The functions mirror the shader code one to one so the lighting, outline, picking and
// grid behavior can be tested without a GPU.
package shading

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
)

const (
	// Ambient is the constant ambient term multiplied by albedo and occlusion.
	Ambient float32 = 0.03
	// IntensityBoost scales every light's radiance.
	IntensityBoost float32 = 1.0
	// MinRoughness is the lower clamp applied to sampled roughness.
	MinRoughness float32 = 0.04
	// DielectricF0 is the base reflectance of non-metals.
	DielectricF0 float32 = 0.04
	// SpecularEpsilon keeps the Cook-Torrance denominator away from zero.
	SpecularEpsilon float32 = 0.0001
)

// DistributionGGX is the Trowbridge-Reitz normal distribution with alpha = roughness².
//
// Parameters:
//   - nDotH: cosine between the normal and the half vector
//   - roughness: perceptual roughness in (0, 1]
//
// Returns:
//   - float32: the microfacet density
func DistributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	nDotH = max(nDotH, 0)
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math32.Pi * d * d)
}

// GeometrySchlickGGX is the Schlick-GGX masking term with k = (roughness+1)²/8.
func GeometrySchlickGGX(nDotX, roughness float32) float32 {
	r := roughness + 1
	k := r * r / 8
	return nDotX / (nDotX*(1-k) + k)
}

// GeometrySmith combines view and light masking: G1(N·V)·G1(N·L).
func GeometrySmith(nDotV, nDotL, roughness float32) float32 {
	return GeometrySchlickGGX(max(nDotV, 0), roughness) * GeometrySchlickGGX(max(nDotL, 0), roughness)
}

// FresnelSchlick approximates the Fresnel reflectance for a given cosine.
//
// Parameters:
//   - cosTheta: cosine between the half vector and the view direction, clamped to [0, 1]
//   - f0: reflectance at normal incidence
//
// Returns:
//   - [3]float32: per-channel reflectance in [f0, 1]
func FresnelSchlick(cosTheta float32, f0 [3]float32) [3]float32 {
	cosTheta = common.Clamp(cosTheta, 0, 1)
	w := math32.Pow(1-cosTheta, 5)
	return [3]float32{
		f0[0] + (1-f0[0])*w,
		f0[1] + (1-f0[1])*w,
		f0[2] + (1-f0[2])*w,
	}
}

// BaseReflectance returns mix(0.04, albedo, metallic).
func BaseReflectance(albedo [3]float32, metallic float32) [3]float32 {
	var f0 [3]float32
	for i := range 3 {
		f0[i] = DielectricF0 + (albedo[i]-DielectricF0)*metallic
	}
	return f0
}

// DiffuseWeight returns kD = (1 - F)(1 - metallic).
func DiffuseWeight(f [3]float32, metallic float32) [3]float32 {
	return [3]float32{
		(1 - f[0]) * (1 - metallic),
		(1 - f[1]) * (1 - metallic),
		(1 - f[2]) * (1 - metallic),
	}
}

// Attenuation is the inverse-square falloff 1/d².
func Attenuation(distance float32) float32 {
	return 1 / (distance * distance)
}

// ToLinear converts an sRGB-encoded color to linear with the x^2.2 approximation.
func ToLinear(c [3]float32) [3]float32 {
	return [3]float32{math32.Pow(c[0], 2.2), math32.Pow(c[1], 2.2), math32.Pow(c[2], 2.2)}
}

// Reinhard maps HDR radiance into [0, 1) with c/(c+1).
func Reinhard(c [3]float32) [3]float32 {
	return [3]float32{c[0] / (c[0] + 1), c[1] / (c[1] + 1), c[2] / (c[2] + 1)}
}

// Gamma encodes linear color with c^(1/2.2).
func Gamma(c [3]float32) [3]float32 {
	const inv = 1 / 2.2
	return [3]float32{math32.Pow(c[0], inv), math32.Pow(c[1], inv), math32.Pow(c[2], inv)}
}
