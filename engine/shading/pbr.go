package shading

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
)

// Surface is a shaded point after texture sampling, in linear space.
type Surface struct {
	Position  [3]float32
	Normal    [3]float32
	Albedo    [3]float32
	Metallic  float32
	Roughness float32
	Occlusion float32
	Emission  [3]float32
}

// PointLight is the subset of a light record the BRDF reads.
type PointLight struct {
	Position  [3]float32
	Color     [3]float32
	Intensity float32
}

// LightContribution splits one light's reflected radiance into its diffuse and specular parts.
type LightContribution struct {
	Diffuse  [3]float32
	Specular [3]float32
}

// Total returns diffuse + specular.
func (c LightContribution) Total() [3]float32 {
	return common.Add3(c.Diffuse, c.Specular)
}

// EvaluateLight computes the Cook-Torrance contribution of a single point light,
// already multiplied by radiance and max(N·L, 0).
//
// Parameters:
//   - s: the surface, roughness is clamped to [MinRoughness, 1]
//   - viewPos: world-space eye position
//   - l: the light
//
// Returns:
//   - LightContribution: the diffuse and specular radiance reaching the eye
func EvaluateLight(s Surface, viewPos [3]float32, l PointLight) LightContribution {
	roughness := common.Clamp(s.Roughness, MinRoughness, 1)
	n := common.Normalize3(s.Normal)
	v := common.Normalize3(common.Sub3(viewPos, s.Position))
	toLight := common.Sub3(l.Position, s.Position)
	dist := common.Length3(toLight)
	if dist == 0 {
		return LightContribution{}
	}
	lv := common.Scale3(toLight, 1/dist)
	h := common.Normalize3(common.Add3(v, lv))

	radiance := common.Scale3(l.Color, l.Intensity*IntensityBoost*Attenuation(dist))

	nDotV := max(common.Dot3(n, v), 0)
	nDotL := max(common.Dot3(n, lv), 0)
	f := FresnelSchlick(max(common.Dot3(h, v), 0), BaseReflectance(s.Albedo, s.Metallic))
	d := DistributionGGX(common.Dot3(n, h), roughness)
	g := GeometrySmith(nDotV, nDotL, roughness)

	denom := 4*nDotV*nDotL + SpecularEpsilon
	kd := DiffuseWeight(f, s.Metallic)

	var out LightContribution
	for i := range 3 {
		spec := d * g * f[i] / denom
		out.Diffuse[i] = kd[i] * s.Albedo[i] / math32.Pi * radiance[i] * nDotL
		out.Specular[i] = spec * radiance[i] * nDotL
	}
	return out
}

// ShadeLinear sums every light plus ambient and emission, before tone mapping.
func ShadeLinear(s Surface, viewPos [3]float32, lights []PointLight) [3]float32 {
	var lo [3]float32
	for _, l := range lights {
		lo = common.Add3(lo, EvaluateLight(s, viewPos, l).Total())
	}
	ambient := common.Scale3(s.Albedo, Ambient*s.Occlusion)
	return common.Add3(common.Add3(lo, ambient), s.Emission)
}

// ShadePBR is the full fragment result of the PBR pass: lighting, Reinhard, then gamma.
//
// Parameters:
//   - s: the surface in linear space
//   - viewPos: world-space eye position
//   - lights: the active lights, i.e. the first light_count records
//
// Returns:
//   - [3]float32: the display-encoded color
func ShadePBR(s Surface, viewPos [3]float32, lights []PointLight) [3]float32 {
	return Gamma(Reinhard(ShadeLinear(s, viewPos, lights)))
}

// TangentFrame builds the orthonormal TBN basis the vertex stage outputs: the tangent is
// Gram-Schmidt orthogonalized against the normal and the bitangent is cross(N, T)·w.
//
// Parameters:
//   - normal: world-space normal
//   - tangent: world-space tangent xyz with handedness in w
//
// Returns:
//   - t, b, n: the basis vectors
func TangentFrame(normal [3]float32, tangent [4]float32) (t, b, n [3]float32) {
	n = common.Normalize3(normal)
	raw := [3]float32{tangent[0], tangent[1], tangent[2]}
	t = common.Normalize3(common.Sub3(raw, common.Scale3(n, common.Dot3(n, raw))))
	w := tangent[3]
	if w == 0 {
		w = 1
	}
	b = common.Scale3(common.Cross3(n, t), w)
	return t, b, n
}

// PerturbNormal maps a normal-map sample from [0, 1] to [-1, 1] and rotates it into world
// space. A nil-texture channel passes (0.5, 0.5, 1), which yields n unchanged.
func PerturbNormal(sample [3]float32, t, b, n [3]float32) [3]float32 {
	ts := [3]float32{sample[0]*2 - 1, sample[1]*2 - 1, sample[2]*2 - 1}
	world := common.Add3(common.Add3(common.Scale3(t, ts[0]), common.Scale3(b, ts[1])), common.Scale3(n, ts[2]))
	return common.Normalize3(world)
}
